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

package mysql_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.opentelemetry.io/otel/trace"

	"github.com/catalog-query/genquery/internal/server"
	"github.com/catalog-query/genquery/internal/sources/mysql"
)

func TestParseFromYamlSourceConfig(t *testing.T) {
	tcs := []struct {
		desc string
		in   string
		want server.SourceConfigs
	}{
		{
			desc: "basic example",
			in: `
kind: sources
name: my-mysql-instance
type: mysql
host: 0.0.0.0
port: my-port
database: my_db
user: my_user
password: my_pass
`,
			want: server.SourceConfigs{
				"my-mysql-instance": mysql.Config{
					Name:     "my-mysql-instance",
					Kind:     mysql.SourceKind,
					Host:     "0.0.0.0",
					Port:     "my-port",
					Database: "my_db",
					User:     "my_user",
					Password: "my_pass",
				},
			},
		},
	}
	for _, tc := range tcs {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			sourceConfigs, _, err := server.UnmarshalResourceConfig(ctx, []byte(tc.in))
			if err != nil {
				t.Fatalf("unable to unmarshal: %s", err)
			}
			if diff := cmp.Diff(tc.want, sourceConfigs, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFromYamlWithQueryTimeoutAndParams(t *testing.T) {
	in := `
kind: sources
name: my-mysql-instance
type: mysql
host: 0.0.0.0
port: my-port
database: my_db
user: my_user
password: my_pass
queryTimeout: 45s
queryParams:
  tls: preferred
  charset: utf8mb4
`
	want := server.SourceConfigs{
		"my-mysql-instance": mysql.Config{
			Name:         "my-mysql-instance",
			Kind:         mysql.SourceKind,
			Host:         "0.0.0.0",
			Port:         "my-port",
			Database:     "my_db",
			User:         "my_user",
			Password:     "my_pass",
			QueryTimeout: "45s",
			QueryParams: map[string]string{
				"tls":     "preferred",
				"charset": "utf8mb4",
			},
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
name: my-mysql-instance
type: mysql
port: my-port
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

func TestFailParseFromYamlUnknownField(t *testing.T) {
	in := `
kind: sources
name: my-mysql-instance
type: mysql
host: 0.0.0.0
port: my-port
database: my_db
user: my_user
password: my_pass
foo: bar
`
	ctx := context.Background()
	_, _, err := server.UnmarshalResourceConfig(ctx, []byte(in))
	if err == nil {
		t.Fatalf("expected parsing to fail on an unknown field")
	}
	if !strings.Contains(err.Error(), "foo") {
		t.Fatalf("expected error to mention the unknown field, got: %v", err)
	}
}

// TestInitializeInvalidQueryTimeout verifies that an invalid QueryTimeout
// string is rejected during initialization without attempting a DB connection.
func TestInitializeInvalidQueryTimeout(t *testing.T) {
	t.Parallel()

	cfg := mysql.Config{
		Name:         "instance",
		Kind:         mysql.SourceKind,
		Host:         "localhost",
		Port:         "3306",
		Database:     "db",
		User:         "user",
		Password:     "pass",
		QueryTimeout: "abc", // invalid duration
	}
	_, err := cfg.Initialize(context.Background(), trace.NewNoopTracerProvider().Tracer("test"))
	if err == nil {
		t.Fatalf("expected error for invalid queryTimeout, got nil")
	}
	if !strings.Contains(err.Error(), "invalid queryTimeout") {
		t.Fatalf("unexpected error: %v", err)
	}
}
