package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

// TestPurpose: Validates that log lines carry the service name and trace context.
// Scope: Unit Test
// Expected: A JSON record includes service, trace_id and span_id when logged within a span context.
// Test Case ID: LOG-01
func TestNew_JSONWithTraceContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", ServiceName: "portal", Output: &buf})

	traceID, _ := trace.TraceIDFromHex("0123456789abcdef0123456789abcdef")
	spanID, _ := trace.SpanIDFromHex("0123456789abcdef")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l.InfoContext(ctx, "hello", TenantID("acme"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "portal", rec["service"])
	assert.Equal(t, "acme", rec["tenant_id"])
	assert.Equal(t, traceID.String(), rec["trace_id"])
	assert.Equal(t, spanID.String(), rec["span_id"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Format: "text", ServiceName: "portal", Output: &buf})

	l.Info("quiet")
	assert.Zero(t, buf.Len())

	l.Warn("loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestFanoutHandler_DeliversToAll(t *testing.T) {
	var a, b bytes.Buffer
	h := NewFanoutHandler(slog.NewTextHandler(&a, nil), slog.NewTextHandler(&b, nil))

	slog.New(h).With(Component("test")).Info("fan")

	assert.Contains(t, a.String(), "component=test")
	assert.Contains(t, b.String(), "component=test")
}

func TestError_Nil(t *testing.T) {
	assert.Equal(t, "", Error(nil).Value.String())
}
