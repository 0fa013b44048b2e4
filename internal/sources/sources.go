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

// Package sources is a registry of backend connections that compiled
// genquery statements are executed against. Each backend (postgres,
// mysql, ...) registers itself in an init() so the server can decode a
// `kind: sources` config document without a central switch statement.
package sources

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/jmoiron/sqlx"
	"github.com/catalog-query/genquery/internal/util/parameters"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Bind type constants re-exported from sqlx, so a backend package only
// needs to import this package to call Rebind.
const (
	BindQuestion = sqlx.QUESTION
	BindDollar   = sqlx.DOLLAR
	BindColon    = sqlx.COLON
	BindAt       = sqlx.AT
	BindNamed    = sqlx.NAMED
)

// Rebind translates the `?` placeholders genquery's emitter always
// produces into the bind syntax a specific driver expects. The emitter
// is dialect-neutral by design (it has no notion of which backend a
// compiled statement will run against); this is where that neutrality
// gets resolved, one bindType per backend kind.
func Rebind(bindType int, statement string) string {
	return sqlx.Rebind(bindType, statement)
}

// SourceConfig is the decoded configuration for a single backend
// connection, prior to it being initialized (connected).
type SourceConfig interface {
	// SourceConfigKind returns the `type` string this config was decoded from.
	SourceConfigKind() string
	// Initialize opens (and pings) the connection described by this config.
	Initialize(ctx context.Context, tracer trace.Tracer) (Source, error)
}

// Source is an initialized backend connection, ready to execute a
// compiled statement's SQL and bound values.
type Source interface {
	// SourceKind returns the same kind string as the SourceConfig that built it.
	SourceKind() string
	// ToConfig returns the configuration this Source was initialized from,
	// used by the admin API to report (redacted) source configuration.
	ToConfig() SourceConfig
}

// newConfigFunc decodes a single `kind: sources` YAML document body into a
// backend-specific SourceConfig.
type newConfigFunc func(ctx context.Context, name string, decoder *yaml.Decoder) (SourceConfig, error)

var registry = make(map[string]newConfigFunc)

// Register associates a source kind string with the function used to
// decode its configuration. It returns false if the kind was already
// registered (a bug in an init() elsewhere, not a runtime condition).
func Register(kind string, fn newConfigFunc) bool {
	if _, ok := registry[kind]; ok {
		return false
	}
	registry[kind] = fn
	return true
}

// DecodeConfig decodes a single source's configuration body using the
// decoder registered for kind.
func DecodeConfig(ctx context.Context, kind, name string, decoder *yaml.Decoder) (SourceConfig, error) {
	fn, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("no source kind %q registered", kind)
	}
	return fn(ctx, name, decoder)
}

// RunSQLSource is implemented by a Source whose compiled statements can
// actually be executed against the backend it wraps. Every backend in
// this package implements it; the interface exists so the server layer
// can execute without a type switch per backend.
type RunSQLSource interface {
	Source
	// RunSQL executes statement with params bound to its `?` placeholders
	// and returns each row as a column-name-keyed map, in result order.
	RunSQL(ctx context.Context, statement string, params parameters.ParamValues) ([]map[string]any, error)
}

// ScanRows drains a database/sql result set into column-name-keyed maps.
// It is the shared scanning logic behind every database/sql-backed
// source's RunSQL; ClickHouse scans its own rows instead, since its
// driver needs per-column-type handling this generic path doesn't do.
func ScanRows(rows *sql.Rows) ([]map[string]any, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve row column names: %w", err)
	}

	rawValues := make([]any, len(cols))
	values := make([]any, len(cols))
	for i := range rawValues {
		values[i] = &rawValues[i]
	}

	var out []map[string]any
	for rows.Next() {
		if err := rows.Scan(values...); err != nil {
			return nil, fmt.Errorf("unable to parse row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, name := range cols {
			if b, ok := rawValues[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = rawValues[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error encountered scanning rows: %w", err)
	}
	return out, nil
}

// InitConnectionSpan starts a tracing span around a backend connection
// attempt, tagged with the backend kind and configured name.
func InitConnectionSpan(ctx context.Context, tracer trace.Tracer, kind, name string) (context.Context, trace.Span) {
	return tracer.Start(
		ctx,
		fmt.Sprintf("genquery/sources/%s/init", kind),
		trace.WithAttributes(
			attribute.String("source_kind", kind),
			attribute.String("source_name", name),
		),
	)
}
