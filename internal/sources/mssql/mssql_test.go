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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.opentelemetry.io/otel/trace"

	"github.com/catalog-query/genquery/internal/server"
	"github.com/catalog-query/genquery/internal/sources/mssql"
)

func TestParseFromYamlSourceConfig(t *testing.T) {
	in := `
kind: sources
name: my-mssql-instance
type: mssql
host: 0.0.0.0
port: 1433
database: my_db
user: my_user
password: my_pass
encrypt: disable
`
	want := server.SourceConfigs{
		"my-mssql-instance": mssql.Config{
			Name:     "my-mssql-instance",
			Kind:     mssql.SourceKind,
			Host:     "0.0.0.0",
			Port:     "1433",
			Database: "my_db",
			User:     "my_user",
			Password: "my_pass",
			Encrypt:  "disable",
		},
	}
	ctx := context.Background()
	sourceConfigs, _, err := server.UnmarshalResourceConfig(ctx, []byte(in))
	if err != nil {
		t.Fatalf("unable to unmarshal: %s", err)
	}
	if diff := cmp.Diff(want, sourceConfigs, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFailParseFromYamlMissingRequiredField(t *testing.T) {
	in := `
kind: sources
name: my-mssql-instance
type: mssql
port: 1433
database: my_db
user: my_user
password: my_pass
`
	ctx := context.Background()
	_, _, err := server.UnmarshalResourceConfig(ctx, []byte(in))
	if err == nil {
		t.Fatalf("expected parsing to fail on a missing required field")
	}
	if !strings.Contains(err.Error(), "Host") {
		t.Fatalf("expected error to mention the missing Host field, got: %v", err)
	}
}

// TestInitializeConnectionFailure verifies that Initialize surfaces a
// connection error (rather than panicking) when the backend is unreachable.
func TestInitializeConnectionFailure(t *testing.T) {
	t.Parallel()

	cfg := mssql.Config{
		Name:     "instance",
		Kind:     mssql.SourceKind,
		Host:     "nonexistent-mssql-host.invalid",
		Port:     "1433",
		Database: "db",
		User:     "user",
		Password: "pass",
	}
	_, err := cfg.Initialize(context.Background(), trace.NewNoopTracerProvider().Tracer("test"))
	if err == nil {
		t.Fatalf("expected a connection error, got nil")
	}
}
