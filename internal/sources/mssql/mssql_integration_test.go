//go:build integration

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

package mssql_test

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.opentelemetry.io/otel/trace"

	"github.com/catalog-query/genquery/internal/sources"
	"github.com/catalog-query/genquery/internal/sources/mssql"
	"github.com/catalog-query/genquery/internal/util/parameters"
)

// TestRunSQLAgainstRealMSSQL starts a disposable SQL Server container
// and checks Rebind turns `?` into the `@p1` syntax go-mssqldb expects
// before the statement ever reaches the driver.
func TestRunSQLAgainstRealMSSQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mcr.microsoft.com/mssql/server:2022-latest",
		ExposedPorts: []string{"1433/tcp"},
		Env: map[string]string{
			"ACCEPT_EULA":       "Y",
			"MSSQL_SA_PASSWORD": "Gen-Query-1",
		},
		WaitingFor: wait.ForListeningPort("1433/tcp").WithStartupTimeout(90 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("unable to start mssql container: %s", err)
	}
	defer func() { _ = container.Terminate(ctx) }()

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("unable to resolve container host: %s", err)
	}
	mapped, err := container.MappedPort(ctx, "1433")
	if err != nil {
		t.Fatalf("unable to resolve mapped port: %s", err)
	}

	cfg := mssql.Config{
		Name:     "it-mssql",
		Kind:     mssql.SourceKind,
		Host:     host,
		Port:     mapped.Port(),
		User:     "sa",
		Password: "Gen-Query-1",
		Database: "master",
	}
	src, err := cfg.Initialize(ctx, trace.NewNoopTracerProvider().Tracer("test"))
	if err != nil {
		t.Fatalf("unable to initialize source: %s", err)
	}
	runner, ok := src.(sources.RunSQLSource)
	if !ok {
		t.Fatalf("mssql source does not implement RunSQLSource")
	}

	rows, err := runner.RunSQL(ctx, "SELECT 1 AS one WHERE 1 = ?", parameters.ParamValues{int64(1)})
	if err != nil {
		t.Fatalf("RunSQL failed: %s", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}
