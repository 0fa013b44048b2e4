// Copyright 2025 Google LLC
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

package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/goccy/go-yaml"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/catalog-query/genquery/internal/sources"
	"github.com/catalog-query/genquery/internal/util"
	"github.com/catalog-query/genquery/internal/util/parameters"
	"go.opentelemetry.io/otel/trace"
)

const SourceKind string = "mssql"

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
	Name        string            `yaml:"name" validate:"required"`
	Kind        string            `yaml:"type" validate:"required"`
	Host        string            `yaml:"host" validate:"required"`
	Port        string            `yaml:"port" validate:"required"`
	User        string            `yaml:"user" validate:"required"`
	Password    string            `yaml:"password" validate:"required"`
	Database    string            `yaml:"database" validate:"required"`
	Encrypt     string            `yaml:"encrypt"`
	QueryParams map[string]string `yaml:"queryParams"`
}

func (r Config) SourceConfigKind() string {
	return SourceKind
}

func (r Config) Initialize(ctx context.Context, tracer trace.Tracer) (sources.Source, error) {
	db, err := initMSSQLConnection(ctx, tracer, r.Name, r.Host, r.Port, r.User, r.Password, r.Database, r.Encrypt, r.QueryParams)
	if err != nil {
		return nil, fmt.Errorf("unable to create db connection: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to connect successfully: %w", err)
	}

	s := &Source{
		Name:   r.Name,
		Kind:   SourceKind,
		Db:     db,
		config: r,
	}
	return s, nil
}

var _ sources.Source = &Source{}
var _ sources.RunSQLSource = &Source{}

type Source struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"type"`
	Db     *sql.DB
	config Config
}

func (s *Source) SourceKind() string {
	return SourceKind
}

func (s *Source) ToConfig() sources.SourceConfig {
	return s.config
}

func (s *Source) MSSQLDB() *sql.DB {
	return s.Db
}

func (s *Source) RunSQL(ctx context.Context, statement string, params parameters.ParamValues) ([]map[string]any, error) {
	statement = sources.Rebind(sources.BindAt, statement)
	rows, err := s.Db.QueryContext(ctx, statement, params.AsSlice()...)
	if err != nil {
		return nil, fmt.Errorf("unable to execute query: %w", err)
	}
	return sources.ScanRows(rows)
}

func initMSSQLConnection(ctx context.Context, tracer trace.Tracer, name, host, port, user, pass, dbname, encrypt string, queryParams map[string]string) (*sql.DB, error) {
	//nolint:all // Reassigned ctx
	ctx, span := sources.InitConnectionSpan(ctx, tracer, SourceKind, name)
	defer span.End()

	if logger, err := util.LoggerFromContext(ctx); err == nil {
		logger.DebugContext(ctx, fmt.Sprintf("connecting to mssql instance %q at %s:%s", name, host, port))
	}

	query := url.Values{}
	query.Add("database", dbname)
	if encrypt != "" {
		query.Add("encrypt", encrypt)
	}
	for k, v := range queryParams {
		query.Add(k, v)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(user, pass),
		Host:     fmt.Sprintf("%s:%s", host, port),
		RawQuery: query.Encode(),
	}

	db, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	return db, nil
}
