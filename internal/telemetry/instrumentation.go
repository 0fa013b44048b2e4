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

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const InstrumentationName = "github.com/catalog-query/genquery/internal/telemetry"

// Instrumentation bundles the tracer, meter, and server metrics a
// request-scoped component needs, so it can be threaded through the
// Server struct instead of each package reaching for the global otel
// providers directly.
type Instrumentation struct {
	Tracer  trace.Tracer
	Meter   metric.Meter
	Metrics *Metrics
}

// NewInstrumentation builds an Instrumentation from the global
// providers that SetupOTel installs, tagged with the server's version
// string.
func NewInstrumentation(versionString string) (*Instrumentation, error) {
	meter := otel.Meter(InstrumentationName, metric.WithInstrumentationVersion(versionString))
	metrics, err := newMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("unable to create server metrics: %w", err)
	}
	return &Instrumentation{
		Tracer:  otel.Tracer(InstrumentationName, trace.WithInstrumentationVersion(versionString)),
		Meter:   meter,
		Metrics: metrics,
	}, nil
}
