// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// NewValueTextHandler returns a slog.Handler that writes key=value text,
// the format used by the standard (non-JSON) logger.
func NewValueTextHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	return slog.NewTextHandler(w, opts)
}

// spanContextHandler attaches the active span's trace and span IDs to every
// record, so a log line can be correlated with the telemetry span that
// produced it.
type spanContextHandler struct {
	slog.Handler
}

func handlerWithSpanContext(h slog.Handler) slog.Handler {
	return &spanContextHandler{Handler: h}
}

func (h *spanContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("logging.googleapis.com/trace", sc.TraceID().String()),
			slog.String("logging.googleapis.com/spanId", sc.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *spanContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &spanContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *spanContextHandler) WithGroup(name string) slog.Handler {
	return &spanContextHandler{Handler: h.Handler.WithGroup(name)}
}
