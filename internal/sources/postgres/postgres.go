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

package postgres

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/goccy/go-yaml"
	"github.com/catalog-query/genquery/internal/sources"
	"github.com/catalog-query/genquery/internal/util/parameters"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/maps"
)

const SourceKind string = "postgres"

// validate interface
var _ sources.SourceConfig = Config{}

func init() {
	if !sources.Register(SourceKind, newConfig) {
		panic(fmt.Sprintf("source kind %q already registered", SourceKind))
	}
}

func newConfig(ctx context.Context, name string, decoder *yaml.Decoder) (sources.SourceConfig, error) {
	actual := Config{Name: name}
	if err := decoder.DecodeContext(ctx, &actual); err != nil {
		return nil, err
	}
	return actual, nil
}

type Config struct {
	Name     string `yaml:"name" validate:"required"`
	Kind     string `yaml:"type" validate:"required"`
	Host     string `yaml:"host" validate:"required"`
	Port     string `yaml:"port" validate:"required"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password" validate:"required"`
	Database string `yaml:"database" validate:"required"`
	// SSLMode is a shortcut for the sslmode query parameter (disable, require, verify-full …).
	// If provided it is added to QueryParams unless the user already set sslmode explicitly.
	SSLMode     string            `yaml:"sslmode"`
	QueryParams map[string]string `yaml:"queryParams"`
}

func (r Config) SourceConfigKind() string {
	return SourceKind
}

func (r Config) Initialize(ctx context.Context, tracer trace.Tracer) (sources.Source, error) {
	qp := maps.Clone(r.QueryParams)
	if r.SSLMode != "" {
		if qp == nil {
			qp = make(map[string]string)
		}
		// Do not overwrite if user already specified sslmode in QueryParams
		if _, ok := qp["sslmode"]; !ok {
			qp["sslmode"] = r.SSLMode
		}
	}

	pool, err := initPostgresConnectionPool(ctx, tracer, r.Name, r.Host, r.Port, r.User, r.Password, r.Database, qp)
	if err != nil {
		return nil, fmt.Errorf("unable to create pool: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to connect successfully: %w", err)
	}

	s := &Source{
		Name:   r.Name,
		Kind:   SourceKind,
		Pool:   pool,
		config: r,
	}
	return s, nil
}

var _ sources.Source = &Source{}
var _ sources.RunSQLSource = &Source{}

type Source struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"type"`
	Pool   *pgxpool.Pool
	config Config
}

func (s *Source) SourceKind() string {
	return SourceKind
}

func (s *Source) ToConfig() sources.SourceConfig {
	return s.config
}

func (s *Source) PostgresPool() *pgxpool.Pool {
	return s.Pool
}

// RunSQL executes a compiled statement against the pool. pgx exposes row
// data through FieldDescriptions/Values rather than database/sql's
// *sql.Rows, so it can't go through sources.ScanRows.
func (s *Source) RunSQL(ctx context.Context, statement string, params parameters.ParamValues) ([]map[string]any, error) {
	statement = sources.Rebind(sources.BindDollar, statement)
	rows, err := s.Pool.Query(ctx, statement, params.AsSlice()...)
	if err != nil {
		return nil, fmt.Errorf("unable to execute query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("unable to parse row: %w", err)
		}
		row := make(map[string]any, len(names))
		for i, name := range names {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error encountered scanning rows: %w", err)
	}
	return out, nil
}

func initPostgresConnectionPool(ctx context.Context, tracer trace.Tracer, name, host, port, user, pass, dbname string, queryParams map[string]string) (*pgxpool.Pool, error) {
	//nolint:all // Reassigned ctx
	ctx, span := sources.InitConnectionSpan(ctx, tracer, SourceKind, name)
	defer span.End()

	// urlExample := "postgres:dd//username:password@localhost:5432/database_name"
	url := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     fmt.Sprintf("%s:%s", host, port),
		Path:     dbname,
		RawQuery: ConvertParamMapToRawQuery(queryParams),
	}
	pool, err := pgxpool.New(ctx, url.String())
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	return pool, nil
}

func ConvertParamMapToRawQuery(queryParams map[string]string) string {
	if len(queryParams) == 0 {
		return ""
	}
	keys := make([]string, 0, len(queryParams))
	for k := range queryParams {
		if queryParams[k] != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	values := url.Values{}
	for _, k := range keys {
		values.Set(k, queryParams[k])
	}
	return values.Encode()
}
