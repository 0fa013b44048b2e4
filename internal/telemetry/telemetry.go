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
	"context"
	"errors"
	"fmt"
	"time"

	mexporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/metric"
	texporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// SetupOTel bootstraps the OpenTelemetry pipeline. otlpEndpoint takes
// precedence over gcpExporter when both are set; with neither set, spans
// and metrics are written to stdout, which is only useful for local
// development. If it does not return an error, make sure to call shutdown
// for proper cleanup.
func SetupOTel(ctx context.Context, versionString string, otlpEndpoint string, gcpExporter bool) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error

	// shutdown calls cleanup functions registered via shutdownFuncs.
	// The errors from the calls are joined.
	// Each registered cleanup will be invoked once.
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	// handleErr calls shutdown for cleanup and makes sure that all errors are returned.
	handleErr := func(inErr error) {
		err = errors.Join(inErr, shutdown(ctx))
	}

	// Configure Context Propagation to use the default W3C traceparent format.
	otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())

	res, err := newResource(versionString)
	if err != nil {
		errMsg := fmt.Errorf("unable to set up resource: %w", err)
		handleErr(errMsg)
		return
	}

	traceExporter, err := newTraceExporter(ctx, otlpEndpoint, gcpExporter)
	if err != nil {
		errMsg := fmt.Errorf("unable to set up trace exporter: %w", err)
		handleErr(errMsg)
		return
	}
	tracerProvider := trace.NewTracerProvider(
		trace.WithBatcher(traceExporter, trace.WithBatchTimeout(time.Second)),
		trace.WithResource(res),
	)
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	metricExporter, err := newMetricExporter(ctx, otlpEndpoint, gcpExporter)
	if err != nil {
		errMsg := fmt.Errorf("unable to set up metric exporter: %w", err)
		handleErr(errMsg)
		return
	}
	meterProvider := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metricExporter, metric.WithInterval(3*time.Second))),
		metric.WithResource(res),
	)
	shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
	otel.SetMeterProvider(meterProvider)

	return shutdown, nil
}

// newResource create default resources for telemetry data.
// Resource represents the entity producing telemetry.
func newResource(versionString string) (*resource.Resource, error) {
	// Ensure default SDK resources and the required service name are set.
	r, err := resource.New(
		context.Background(),
		resource.WithFromEnv(),                    // Discover and provide attributes from OTEL_RESOURCE_ATTRIBUTES and OTEL_SERVICE_NAME environment variables.
		resource.WithTelemetrySDK(),               // Discover and provide information about the OTel SDK used.
		resource.WithOS(),                         // Discover and provide OS information.
		resource.WithContainer(),                  // Discover and provide container information.
		resource.WithHost(),                       //Discover and provide host information.
		resource.WithSchemaURL(semconv.SchemaURL), // Set the schema url.
		resource.WithAttributes( // Add other custom resource attributes.
			semconv.ServiceName("genquery"),
			semconv.ServiceVersion(versionString),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("trace provider fail to set up resource: %w", err)
	}
	return r, nil
}

// newTraceExporter picks a span exporter based on the server's telemetry
// flags: an OTLP endpoint wins if set, then GCP Cloud Trace, falling back
// to stdout for local development.
func newTraceExporter(ctx context.Context, otlpEndpoint string, gcpExporter bool) (trace.SpanExporter, error) {
	switch {
	case otlpEndpoint != "":
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(otlpEndpoint))
	case gcpExporter:
		return texporter.New()
	default:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
}

// newMetricExporter picks a metric exporter the same way newTraceExporter
// picks a span exporter.
func newMetricExporter(ctx context.Context, otlpEndpoint string, gcpExporter bool) (metric.Exporter, error) {
	switch {
	case otlpEndpoint != "":
		return otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(otlpEndpoint))
	case gcpExporter:
		return mexporter.New()
	default:
		return stdoutmetric.New(stdoutmetric.WithPrettyPrint())
	}
}
