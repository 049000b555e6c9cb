package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "bbs-test", Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	span, ctx := NewSpan(context.Background(), "test.span")
	assert.NotNil(t, ctx)
	span.SetError(errors.New("boom"))
	span.End()
}

func TestRepoLogger_WritesTableAndOperation(t *testing.T) {
	prev := GlobalLogger
	t.Cleanup(func() { GlobalLogger = prev })

	var buf bytes.Buffer
	UseLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	NewRepoLogger("posts").LogDelete(context.Background(), map[string]any{"post_id": 7})
	out := buf.String()
	assert.Contains(t, out, "table=posts")
	assert.Contains(t, out, "operation=delete")
	assert.Contains(t, out, "post_id=7")
}

func TestRepoLogger_IgnoresNilError(t *testing.T) {
	prev := GlobalLogger
	t.Cleanup(func() { GlobalLogger = prev })

	var buf bytes.Buffer
	UseLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	NewRepoLogger("likes").LogError(context.Background(), nil, "toggle")
	assert.Empty(t, buf.String())
}

func TestTrackQuery_ObservesLatency(t *testing.T) {
	before := testutil.CollectAndCount(DatabaseQueryLatency)
	TrackQuery("select", "observability_test")()
	assert.Greater(t, testutil.CollectAndCount(DatabaseQueryLatency), before)
}

func TestInitTracing_RejectsBadExporter(t *testing.T) {
	_, err := InitTracing(TracingConfig{ServiceName: "bbs-test", Enabled: true, Exporter: "zipkin"})
	assert.Error(t, err)

	_, err = InitTracing(TracingConfig{ServiceName: "bbs-test", Enabled: true, Exporter: "otlp"})
	assert.Error(t, err)
}

func TestNewSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), newSampler(1).Description())
	assert.Contains(t, newSampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, newSampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestSpan_NilSafe(t *testing.T) {
	var s *Span
	s.AddAttributes()
	s.SetError(errors.New("ignored"))
	s.End()
}
