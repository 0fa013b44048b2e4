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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/catalog-query/genquery/internal/log"
	"github.com/catalog-query/genquery/internal/sources"
	"github.com/catalog-query/genquery/internal/telemetry"
	"github.com/catalog-query/genquery/internal/util/parameters"
	"go.opentelemetry.io/otel/trace"
)

// mockSourceConfig and mockSource stand in for a real backend connection
// in tests so the HTTP layer can be exercised without a database.
type mockSourceConfig struct {
	name string
}

func (c mockSourceConfig) SourceConfigKind() string { return "mock" }

func (c mockSourceConfig) Initialize(ctx context.Context, tracer trace.Tracer) (sources.Source, error) {
	panic("not used in tests")
}

type mockSource struct {
	name string
	rows []map[string]any
	err  error
}

func (s *mockSource) SourceKind() string             { return "mock" }
func (s *mockSource) ToConfig() sources.SourceConfig { return mockSourceConfig{name: s.name} }

func (s *mockSource) RunSQL(ctx context.Context, statement string, params parameters.ParamValues) ([]map[string]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

var _ sources.Source = (*mockSource)(nil)
var _ sources.RunSQLSource = (*mockSource)(nil)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	instrumentation, err := telemetry.NewInstrumentation("test")
	if err != nil {
		t.Fatalf("unable to create instrumentation: %s", err)
	}
	logger, err := log.NewStdLogger(io.Discard, io.Discard, "error")
	if err != nil {
		t.Fatalf("unable to create logger: %s", err)
	}

	s := &Server{
		conf:            ServerConfig{Version: "test"},
		logger:          logger,
		instrumentation: instrumentation,
		sources: map[string]sources.Source{
			"primary": &mockSource{name: "primary", rows: []map[string]any{{"coll_name": "/tempZone/home"}}},
		},
		catalogs: CatalogConfigs{
			"main": CatalogConfig{Name: "main", SourceName: "primary"},
		},
	}
	router, err := apiRouter(s)
	if err != nil {
		t.Fatalf("unable to build router: %s", err)
	}
	s.root = router
	return s
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("unable to marshal request body: %s", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("unable to build request: %s", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("unable to perform request: %s", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("unable to read response body: %s", err)
	}
	return resp, respBody
}

func TestCompileEndpoint(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.root)
	defer ts.Close()

	testCases := []struct {
		name       string
		source     string
		wantStatus int
	}{
		{
			name:       "valid selection",
			source:     "SELECT COLL_NAME, DATA_NAME",
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown column",
			source:     "SELECT FOO_BAR",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doRequest(t, ts, http.MethodPost, "/compile", compileRequest{Source: tc.source})
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("unexpected status: want %d, got %d (%s)", tc.wantStatus, resp.StatusCode, body)
			}
			if tc.wantStatus != http.StatusOK {
				return
			}
			var got compileResponse
			if err := json.Unmarshal(body, &got); err != nil {
				t.Fatalf("unable to parse compileResponse: %s", err)
			}
			if got.SQL == "" {
				t.Fatalf("expected non-empty SQL in response")
			}
		})
	}
}

func TestExecuteEndpoint(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.root)
	defer ts.Close()

	testCases := []struct {
		name       string
		req        executeRequest
		wantStatus int
	}{
		{
			name:       "known catalog",
			req:        executeRequest{Catalog: "main", Source: "SELECT COLL_NAME"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown catalog",
			req:        executeRequest{Catalog: "nope", Source: "SELECT COLL_NAME"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid genquery source",
			req:        executeRequest{Catalog: "main", Source: "SELECT FOO_BAR"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doRequest(t, ts, http.MethodPost, "/execute", tc.req)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("unexpected status: want %d, got %d (%s)", tc.wantStatus, resp.StatusCode, body)
			}
			if tc.wantStatus != http.StatusOK {
				return
			}
			var got executeResponse
			if err := json.Unmarshal(body, &got); err != nil {
				t.Fatalf("unable to parse executeResponse: %s", err)
			}
			if len(got.Rows) != 1 {
				t.Fatalf("expected 1 row, got %d", len(got.Rows))
			}
		})
	}
}

func TestSourceListEndpoint(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.root)
	defer ts.Close()

	resp, body := doRequest(t, ts, http.MethodGet, "/source", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: want %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var m SourceListResponse
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("unable to parse SourceListResponse: %s", err)
	}
	if _, ok := m.Sources["primary"]; !ok {
		t.Fatalf("primary source not found in response")
	}
}

func TestSourceGetEndpoint(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.root)
	defer ts.Close()

	resp, _ := doRequest(t, ts, http.MethodGet, "/source/unknown", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status for missing source: want %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}
