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
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/catalog-query/genquery/genquery"
	"github.com/catalog-query/genquery/internal/sources"
	"github.com/catalog-query/genquery/internal/util"
	"github.com/catalog-query/genquery/internal/util/parameters"
)

// apiRouter creates a router that represents the routes under /genquery.
func apiRouter(s *Server) (chi.Router, error) {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/compile", compileHandler(s))
		r.Post("/execute", executeHandler(s))
	})

	r.Get("/source", func(w http.ResponseWriter, r *http.Request) { sourceListHandler(s, w, r) })
	r.Get("/source/{sourceName}", func(w http.ResponseWriter, r *http.Request) { sourceGetHandler(s, w, r) })

	return r, nil
}

// compileRequest is the body of a POST /genquery/compile request.
type compileRequest struct {
	Source string `json:"source"`
}

// compileResponse is the response sent back for a successful compile.
type compileResponse struct {
	SQL         string   `json:"sql"`
	BoundValues []string `json:"boundValues"`
}

func (compileResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, http.StatusOK)
	return nil
}

// compileHandler translates a GenQuery statement into parameterized SQL
// scoped by the requesting user's bearer token, without running it.
func compileHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.instrumentation.Tracer.Start(r.Context(), "genquery/server/compile")
		r = r.WithContext(ctx)
		defer span.End()
		s.instrumentation.Metrics.OperationActive.Add(ctx, 1)
		defer s.instrumentation.Metrics.OperationActive.Add(ctx, -1)

		correlationID := uuid.NewString()

		opts, err := s.resolveOptions(r)
		if err != nil {
			_ = render.Render(w, r, newErrResponse(err, http.StatusUnauthorized))
			return
		}

		var req compileRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			err := fmt.Errorf("request body was invalid JSON: %w", err)
			_ = render.Render(w, r, newErrResponse(err, http.StatusBadRequest))
			return
		}

		s.instrumentation.Metrics.Compile.Add(ctx, 1)
		result, compErr := genquery.Compile(req.Source, opts)
		if compErr != nil {
			s.instrumentation.Metrics.CompileError.Add(ctx, 1)
			s.logger.WarnContext(ctx, "compile failed", "correlation_id", correlationID, "error", compErr.Error())
			_ = render.Render(w, r, newErrResponse(compErr, http.StatusBadRequest))
			return
		}
		warnIfNoPermissionPredicate(ctx, s, correlationID, req.Source, result)

		_ = render.Render(w, r, compileResponse{SQL: result.SQL, BoundValues: result.LastBoundValues()})
	}
}

// warnIfNoPermissionPredicate audits, via the server's logger rather
// than the compiler core (which never performs I/O), a compiled
// statement that touched no permission-bearing table and so carries no
// permission predicate at all. Lets operators review whether that
// statement should have been scoped.
func warnIfNoPermissionPredicate(ctx context.Context, s *Server, correlationID, source string, result *genquery.CompileResult) {
	if !result.NoPermissionPredicate {
		return
	}
	s.logger.WarnContext(ctx, "compiled statement has no permission predicate",
		"correlation_id", correlationID, "source", source, "sql", result.SQL)
}

// executeRequest is the body of a POST /genquery/execute request.
type executeRequest struct {
	Catalog string `json:"catalog"`
	Source  string `json:"source"`
}

// executeResponse is the response sent back for a successful execute.
type executeResponse struct {
	Rows []map[string]any `json:"rows"`
}

func (executeResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, http.StatusOK)
	return nil
}

// executeHandler compiles a GenQuery statement and runs the resulting
// SQL against the backend bound to the named catalog.
func executeHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.instrumentation.Tracer.Start(r.Context(), "genquery/server/execute")
		r = r.WithContext(ctx)
		defer span.End()
		s.instrumentation.Metrics.OperationActive.Add(ctx, 1)
		defer s.instrumentation.Metrics.OperationActive.Add(ctx, -1)

		correlationID := uuid.NewString()

		opts, err := s.resolveOptions(r)
		if err != nil {
			_ = render.Render(w, r, newErrResponse(err, http.StatusUnauthorized))
			return
		}

		var req executeRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			err := fmt.Errorf("request body was invalid JSON: %w", err)
			_ = render.Render(w, r, newErrResponse(err, http.StatusBadRequest))
			return
		}

		catalog, ok := s.catalogs[req.Catalog]
		if !ok {
			err := &util.AgentError{Msg: fmt.Sprintf("catalog %q does not exist", req.Catalog)}
			_ = render.Render(w, r, newErrResponse(err, errRenderCategory(err)))
			return
		}
		source, ok := s.sources[catalog.SourceName]
		if !ok {
			err := &util.ServerError{Msg: fmt.Sprintf("catalog %q references unknown source", req.Catalog)}
			_ = render.Render(w, r, newErrResponse(err, errRenderCategory(err)))
			return
		}
		runner, ok := source.(sources.RunSQLSource)
		if !ok {
			err := &util.ServerError{Msg: fmt.Sprintf("source %q of kind %q cannot execute compiled statements", catalog.SourceName, source.SourceKind())}
			_ = render.Render(w, r, newErrResponse(err, errRenderCategory(err)))
			return
		}

		result, compErr := genquery.Compile(req.Source, opts)
		if compErr != nil {
			s.instrumentation.Metrics.CompileError.Add(ctx, 1)
			s.logger.WarnContext(ctx, "compile failed", "correlation_id", correlationID, "error", compErr.Error())
			_ = render.Render(w, r, newErrResponse(compErr, http.StatusBadRequest))
			return
		}
		warnIfNoPermissionPredicate(ctx, s, correlationID, req.Source, result)
		s.instrumentation.Metrics.Execute.Add(ctx, 1)

		params := make(parameters.ParamValues, len(result.BoundValues))
		for i, v := range result.BoundValues {
			params[i] = v
		}

		rows, err := runner.RunSQL(ctx, result.SQL, params)
		if err != nil {
			wrapped := &util.ServerError{Msg: "unable to execute compiled statement", Cause: err}
			_ = render.Render(w, r, newErrResponse(wrapped, errRenderCategory(wrapped)))
			return
		}

		_ = render.Render(w, r, executeResponse{Rows: rows})
	}
}

// resolveOptions extracts compile options from the request's bearer
// token, or falls back to an unauthenticated default when the server
// was started without a signing key (local development only).
func (s *Server) resolveOptions(r *http.Request) (genquery.Options, error) {
	if s.authVerifier == nil {
		return genquery.Options{}, nil
	}
	return s.authVerifier.Options(r)
}

// errRenderCategory reports the HTTP status a util.CategorizedError maps to,
// so handlers that receive one from a lower layer don't need their own
// type switch.
func errRenderCategory(err util.CategorizedError) int {
	switch err.Category() {
	case util.CategoryAgent:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
