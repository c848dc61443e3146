// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package telemetry sets up OpenTelemetry tracing for grlctl runs. A build
// produces one trace with a span per subrun, so slow or failing subruns of
// batch jobs can be found in a collector.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Instrumentation scope of every grlctl span.
const ScopeName = "github.com/telekom/nusources-grl"

// Exporter names.
const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

// Options configures the TracerProvider.
type Options struct {
	// Enabled controls whether tracing is active. When false a no-op
	// provider is installed.
	Enabled bool

	// ServiceName defaults to "grlctl".
	ServiceName    string
	ServiceVersion string

	// Exporter is one of otlp (default), stdout or none.
	Exporter string
	// Endpoint is the OTLP gRPC collector, e.g. "otel-collector:4317".
	Endpoint string
	Insecure bool
	// Writer receives stdout exporter output; nil means os.Stderr so traces
	// never mix with command output.
	Writer io.Writer

	// SamplingRate is the probability of sampling a trace (0.0-1.0).
	SamplingRate float64

	// SpanExporter, when set, replaces the exporter selected by Exporter.
	SpanExporter sdktrace.SpanExporter

	Logger *zap.SugaredLogger
}

// ShutdownFunc flushes pending spans and stops the provider.
type ShutdownFunc func(ctx context.Context) error

// Init installs the global TracerProvider and propagator and returns a
// shutdown function that must run before the process exits.
func Init(ctx context.Context, opts Options) (trace.TracerProvider, ShutdownFunc, error) {
	if !opts.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, func(context.Context) error { return nil }, nil
	}

	if opts.ServiceName == "" {
		opts.ServiceName = "grlctl"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.SamplingRate <= 0 || opts.SamplingRate > 1.0 {
		if opts.SamplingRate != 0 {
			log.Warnw("Trace sampling rate out of range, sampling everything", "provided", opts.SamplingRate)
		}
		opts.SamplingRate = 1.0
	}

	// NewSchemaless avoids schema URL conflicts with resource.Default().
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", opts.ServiceName),
			attribute.String("service.version", opts.ServiceVersion),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating OTel resource: %w", err)
	}

	exporter := opts.SpanExporter
	if exporter == nil {
		exporter, err = newExporter(ctx, opts)
		if err != nil {
			return nil, nil, err
		}
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SamplingRate))),
	}
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		log.Warnw("OpenTelemetry internal error", "error", err)
	}))
	log.Debugw("Tracing initialized", "exporter", opts.Exporter, "samplingRate", opts.SamplingRate)

	shutdown := func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(shutdownCtx)
	}
	return tp, shutdown, nil
}

func newExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	switch opts.Exporter {
	case ExporterOTLP, "":
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}
		exp, err := otlptracegrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP gRPC exporter: %w", err)
		}
		return exp, nil
	case ExporterStdout:
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating stdout exporter: %w", err)
		}
		return exp, nil
	case ExporterNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown trace exporter %q: supported values are otlp, stdout, none", opts.Exporter)
	}
}

// Tracer returns the grlctl tracer of the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(ScopeName)
}
