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

package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/catalog-query/genquery/internal/auth"
	logLib "github.com/catalog-query/genquery/internal/log"
	"github.com/catalog-query/genquery/internal/sources"
	"github.com/catalog-query/genquery/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Server holds everything needed to serve /genquery/compile and
// /genquery/execute. Should be instantiated with NewServer().
type Server struct {
	conf   ServerConfig
	root   chi.Router
	logger logLib.Logger

	instrumentation *telemetry.Instrumentation
	authVerifier    *auth.Verifier

	sources  map[string]sources.Source
	catalogs CatalogConfigs
}

// NewServer returns a Server object based on the provided Config. It
// builds its own request-scoped Instrumentation (tracer, meter,
// metrics) rather than accepting one, so every Server is self
// contained and tests can construct one without touching global otel
// state.
func NewServer(cfg ServerConfig, log logLib.Logger) (*Server, error) {
	instrumentation, err := telemetry.NewInstrumentation(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("unable to create instrumentation: %w", err)
	}

	ctx, span := instrumentation.Tracer.Start(context.Background(), "genquery/server/init")
	defer span.End()

	logLevel, err := logLib.SeverityToLevel(cfg.LogLevel.String())
	if err != nil {
		return nil, fmt.Errorf("unable to initialize http log: %w", err)
	}
	var httpOpts httplog.Options
	switch cfg.LoggingFormat.String() {
	case "json":
		httpOpts = httplog.Options{
			JSON:             true,
			LogLevel:         logLevel,
			Concise:          true,
			RequestHeaders:   true,
			MessageFieldName: "message",
			SourceFieldName:  "logging.googleapis.com/sourceLocation",
			TimeFieldName:    "timestamp",
			LevelFieldName:   "severity",
		}
	default:
		httpOpts = httplog.Options{
			LogLevel:         logLevel,
			Concise:          true,
			RequestHeaders:   true,
			MessageFieldName: "message",
		}
	}

	httpLogger := httplog.NewLogger("httplog", httpOpts)
	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(httpLogger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("genquery"))
	})

	// initialize and validate the sources
	sourcesMap := make(map[string]sources.Source, len(cfg.SourceConfigs))
	for name, sc := range cfg.SourceConfigs {
		s, err := func() (sources.Source, error) {
			ctx, span := instrumentation.Tracer.Start(
				ctx,
				"genquery/server/source/init",
				trace.WithAttributes(attribute.String("source_kind", sc.SourceConfigKind())),
				trace.WithAttributes(attribute.String("source_name", name)),
			)
			defer span.End()
			s, err := sc.Initialize(ctx, instrumentation.Tracer)
			if err != nil {
				return nil, fmt.Errorf("unable to initialize source %q: %w", name, err)
			}
			return s, nil
		}()
		if err != nil {
			return nil, err
		}
		sourcesMap[name] = s
	}
	log.InfoContext(ctx, fmt.Sprintf("initialized %d sources", len(sourcesMap)))

	// validate every catalog binds to a configured source
	for name, cc := range cfg.CatalogConfigs {
		if _, ok := sourcesMap[cc.SourceName]; !ok {
			return nil, fmt.Errorf("catalog %q references unknown source %q", name, cc.SourceName)
		}
	}
	log.InfoContext(ctx, fmt.Sprintf("initialized %d catalogs", len(cfg.CatalogConfigs)))

	var verifier *auth.Verifier
	if cfg.JWTSigningKey != "" {
		verifier = auth.NewVerifier([]byte(cfg.JWTSigningKey))
	}

	s := &Server{
		conf:            cfg,
		root:            r,
		logger:          log,
		instrumentation: instrumentation,
		authVerifier:    verifier,
		sources:         sourcesMap,
		catalogs:        cfg.CatalogConfigs,
	}

	router, err := apiRouter(s)
	if err != nil {
		return nil, err
	}
	r.Mount("/genquery", router)

	return s, nil
}

// Listen starts a listener for the given Server instance.
func (s *Server) Listen(ctx context.Context) (net.Listener, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	addr := net.JoinHostPort(s.conf.Address, strconv.Itoa(s.conf.Port))
	lc := net.ListenConfig{KeepAlive: 30 * time.Second}
	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to open listener for %q: %w", addr, err)
	}
	return l, nil
}

// Serve starts an HTTP server for the given Server instance.
func (s *Server) Serve(l net.Listener) error {
	return http.Serve(l, s.root)
}
