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

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

const (
	compileCountName      = "genquery.server.compile.count"
	compileErrorCountName = "genquery.server.compile.error.count"
	executeCountName      = "genquery.server.execute.count"
	operationActiveName   = "genquery.server.operation.active"
)

// Metrics holds the counters one Instrumentation exposes to the server
// layer. Unlike the teacher's package-level meter/counters, these are
// built once per Instrumentation and threaded through the Server struct,
// so tests can construct an isolated Instrumentation without touching
// any process-wide state.
type Metrics struct {
	Compile          metric.Int64Counter
	CompileError     metric.Int64Counter
	Execute          metric.Int64Counter
	OperationActive  metric.Int64UpDownCounter
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	compile, err := meter.Int64Counter(
		compileCountName,
		metric.WithDescription("Number of /genquery/compile calls."),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create %s metric: %w", compileCountName, err)
	}

	compileError, err := meter.Int64Counter(
		compileErrorCountName,
		metric.WithDescription("Number of /genquery/compile and /genquery/execute calls that returned a CompileError."),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create %s metric: %w", compileErrorCountName, err)
	}

	execute, err := meter.Int64Counter(
		executeCountName,
		metric.WithDescription("Number of /genquery/execute calls."),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create %s metric: %w", executeCountName, err)
	}

	active, err := meter.Int64UpDownCounter(
		operationActiveName,
		metric.WithDescription("Number of in-flight compile/execute requests."),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create %s metric: %w", operationActiveName, err)
	}

	return &Metrics{
		Compile:         compile,
		CompileError:    compileError,
		Execute:         execute,
		OperationActive: active,
	}, nil
}
