// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

func restoreProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestInitDisabled(t *testing.T) {
	restoreProvider(t)

	ctx := context.Background()
	tp, shutdown, err := Init(ctx, Options{Enabled: false})
	require.NoError(t, err)
	require.NoError(t, shutdown(ctx))

	_, ok := tp.(noop.TracerProvider)
	assert.True(t, ok, "expected noop.TracerProvider, got %T", tp)
}

func TestInitRecordsSpans(t *testing.T) {
	restoreProvider(t)

	ctx := context.Background()
	exp := tracetest.NewInMemoryExporter()
	tp, shutdown, err := Init(ctx, Options{
		Enabled:      true,
		SpanExporter: exp,
		Logger:       zap.NewNop().Sugar(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(ctx) })

	_, span := Tracer().Start(ctx, "grlctl.build")
	span.End()
	// Shutdown resets the in-memory exporter, so flush instead.
	require.NoError(t, tp.(*sdktrace.TracerProvider).ForceFlush(ctx))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "grlctl.build", spans[0].Name)
	assert.Equal(t, ScopeName, spans[0].InstrumentationScope.Name)
}

func TestInitStdoutExporterWritesToWriter(t *testing.T) {
	restoreProvider(t)

	ctx := context.Background()
	var buf bytes.Buffer
	_, shutdown, err := Init(ctx, Options{
		Enabled:      true,
		Exporter:     ExporterStdout,
		Writer:       &buf,
		SamplingRate: 1,
	})
	require.NoError(t, err)

	_, span := Tracer().Start(ctx, "reconcile.subrun")
	span.End()
	require.NoError(t, shutdown(ctx))
	assert.Contains(t, buf.String(), "reconcile.subrun")
}

func TestInitNoneExporterAndClamping(t *testing.T) {
	for _, rate := range []float64{-0.5, 0, 2.0} {
		restoreProvider(t)
		ctx := context.Background()
		tp, shutdown, err := Init(ctx, Options{Enabled: true, Exporter: ExporterNone, SamplingRate: rate})
		require.NoError(t, err)
		require.NotNil(t, tp)
		require.NoError(t, shutdown(ctx))
	}
}

func TestInitInvalidExporter(t *testing.T) {
	_, _, err := Init(context.Background(), Options{Enabled: true, Exporter: "invalid-exporter"})
	require.Error(t, err)
}

func TestInitOTLPExporterCreation(t *testing.T) {
	restoreProvider(t)

	ctx := context.Background()
	// The OTLP exporter connects lazily, so New succeeds without a collector.
	tp, shutdown, err := Init(ctx, Options{
		Enabled:  true,
		Exporter: ExporterOTLP,
		Endpoint: "localhost:0",
		Insecure: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(ctx) })
	require.NotNil(t, tp)
}
