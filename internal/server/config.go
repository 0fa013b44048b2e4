// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
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
	"fmt"
	"strings"

	yaml "github.com/goccy/go-yaml"
	"github.com/catalog-query/genquery/internal/sources"
	"github.com/catalog-query/genquery/internal/util"
)

type ServerConfig struct {
	// Server version
	Version string
	// Address is the address of the interface the server will listen on.
	Address string
	// Port is the port the server will listen on.
	Port int
	// SourceConfigs defines what backend connections are available to
	// execute compiled statements against.
	SourceConfigs SourceConfigs
	// CatalogConfigs binds a catalog name to the source it executes
	// compiled statements against.
	CatalogConfigs CatalogConfigs
	// JWTSigningKey verifies the bearer token every compile/execute
	// request must carry.
	JWTSigningKey string
	// LoggingFormat defines whether structured loggings are used.
	LoggingFormat logFormat
	// LogLevel defines the levels to log.
	LogLevel StringLevel
	// TelemetryGCP defines whether GCP exporter is used.
	TelemetryGCP bool
	// TelemetryOTLP defines OTLP collector url for telemetry exports.
	TelemetryOTLP string
	// TelemetryServiceName holds the --telemetry-service-name value. It is
	// not passed to the telemetry setup, which always sets service.name to
	// "genquery".
	TelemetryServiceName string
}

type logFormat string

// String is used by both fmt.Print and by Cobra in help text
func (f *logFormat) String() string {
	if string(*f) != "" {
		return strings.ToLower(string(*f))
	}
	return "standard"
}

// validate logging format flag
func (f *logFormat) Set(v string) error {
	switch strings.ToLower(v) {
	case "standard", "json":
		*f = logFormat(v)
		return nil
	default:
		return fmt.Errorf(`log format must be one of "standard", or "json"`)
	}
}

// Type is used in Cobra help text
func (f *logFormat) Type() string {
	return "logFormat"
}

type StringLevel string

// String is used by both fmt.Print and by Cobra in help text
func (s *StringLevel) String() string {
	if string(*s) != "" {
		return strings.ToLower(string(*s))
	}
	return "info"
}

// validate log level flag
func (s *StringLevel) Set(v string) error {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		*s = StringLevel(v)
		return nil
	default:
		return fmt.Errorf(`log level must be one of "debug", "info", "warn", or "error"`)
	}
}

// Type is used in Cobra help text
func (s *StringLevel) Type() string {
	return "stringLevel"
}

// UnmarshalResourceConfig parses a multi-document `---`-separated
// catalog file into its two resource kinds. GenQuery has exactly one
// operation (compile, optionally followed by execution against a
// backend), so unlike the teacher's four resource kinds (sources,
// authServices, tools, toolsets) this repo only ever decodes two:
// `sources` (backend connections) and `catalogs` (the binding from a
// catalog name to one of those sources).
func UnmarshalResourceConfig(ctx context.Context, raw []byte) (SourceConfigs, CatalogConfigs, error) {
	sourceConfigs := make(SourceConfigs)
	catalogConfigs := make(CatalogConfigs)

	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	for {
		var resource map[string]any
		if err := decoder.DecodeContext(ctx, &resource); err != nil {
			if err.Error() == "EOF" {
				break
			}
			return nil, nil, fmt.Errorf("unable to parse kind: %s", err)
		}
		var kind, name string
		var ok bool
		if kind, ok = resource["kind"].(string); !ok {
			return nil, nil, fmt.Errorf("missing 'kind' field or it is not a string")
		}
		if name, ok = resource["name"].(string); !ok {
			return nil, nil, fmt.Errorf("missing 'name' field or it is not a string")
		}
		// "kind" only ever names the resource kind (sources, catalogs);
		// a source's own backend type travels in a separate "type" field,
		// so dropping "kind" here never shadows it.
		delete(resource, "kind")

		switch kind {
		case "sources":
			c, err := UnmarshalYAMLSourceConfig(ctx, name, resource)
			if err != nil {
				return nil, nil, fmt.Errorf("error unmarshaling %s: %s", kind, err)
			}
			sourceConfigs[name] = c
		case "catalogs":
			c, err := UnmarshalYAMLCatalogConfig(ctx, name, resource)
			if err != nil {
				return nil, nil, fmt.Errorf("error unmarshaling %s: %s", kind, err)
			}
			catalogConfigs[name] = c
		default:
			return nil, nil, fmt.Errorf("invalid kind %s", kind)
		}
	}
	return sourceConfigs, catalogConfigs, nil
}

// SourceConfigs is a type used to allow unmarshal of the data source config map
type SourceConfigs map[string]sources.SourceConfig

func UnmarshalYAMLSourceConfig(ctx context.Context, name string, r map[string]any) (sources.SourceConfig, error) {
	typeStr, ok := r["type"].(string)
	if !ok {
		return nil, fmt.Errorf("missing 'type' field or it is not a string")
	}
	dec, err := util.NewStrictDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("error creating decoder: %s", err)
	}
	sourceConfig, err := sources.DecodeConfig(ctx, typeStr, name, dec)
	if err != nil {
		return nil, err
	}
	return sourceConfig, nil
}

// CatalogConfig names which configured source a catalog executes
// compiled GenQuery statements against. It is not the compiler's
// compile-time schema catalog (genquery's own catalog.go, a Go
// constant table) — it is purely a backend binding.
type CatalogConfig struct {
	Name       string `yaml:"name" validate:"required"`
	SourceName string `yaml:"source" validate:"required"`
}

// CatalogConfigs is a type used to allow unmarshal of the catalog binding map
type CatalogConfigs map[string]CatalogConfig

func UnmarshalYAMLCatalogConfig(ctx context.Context, name string, r map[string]any) (CatalogConfig, error) {
	dec, err := util.NewStrictDecoder(r)
	if err != nil {
		return CatalogConfig{}, fmt.Errorf("error creating decoder: %s", err)
	}
	actual := CatalogConfig{Name: name}
	if err := dec.DecodeContext(ctx, &actual); err != nil {
		return CatalogConfig{}, fmt.Errorf("unable to parse catalog %q: %w", name, err)
	}
	return actual, nil
}
