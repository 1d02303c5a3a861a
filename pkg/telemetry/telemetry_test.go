package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return NewLoggerWithWriter(buf, LoggingConfig{Level: level, Format: "json"})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		lines = append(lines, m)
	}
	return lines
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, "debug").
		NewComponentLogger("project").
		WithRunID("run-1").
		WithProject("/plc/demo.ap17")

	logger.WithError(errors.New("locked")).WithFields(map[string]interface{}{"attempt": 2}).Error("failed to open project")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "error", lines[0]["level"])
	assert.Equal(t, "project", lines[0]["component"])
	assert.Equal(t, "run-1", lines[0]["run_id"])
	assert.Equal(t, "/plc/demo.ap17", lines[0]["project"])
	assert.Equal(t, "locked", lines[0]["error"])
	assert.Equal(t, float64(2), lines[0]["attempt"])
	assert.Equal(t, "failed to open project", lines[0]["message"])
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, "warn")

	logger.Debug("hidden")
	logger.Infof("hidden %d", 1)
	logger.Warnf("shown %d", 2)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown 2", lines[0]["message"])
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.WithField("k", "v").Info("nothing")
		logger.NewComponentLogger("x").WithError(errors.New("e")).Error("nothing")
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "missing service name", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: "service name"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "log level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "log format"},
		{name: "bad exporter", mutate: func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Exporter = "zipkin" }, wantErr: "trace exporter"},
		{name: "otlp without endpoint", mutate: func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Exporter = "otlp" }, wantErr: "endpoint"},
		{name: "disabled tracing ignores exporter", mutate: func(c *Config) { c.Tracing.Exporter = "zipkin" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMetrics(t *testing.T) {
	m := NewMetrics(MetricsConfig{Namespace: "tiabridge"})

	m.RecordSession("headless", "ok")
	m.RecordProjectOpen("ok")
	m.RecordWalk(3, 5)
	m.RecordListed("data", 2)
	m.RecordListed("function", 1)
	m.RecordError("no_controller")

	expected := `
# HELP tiabridge_blocks_listed_total Total number of blocks emitted by listings
# TYPE tiabridge_blocks_listed_total counter
tiabridge_blocks_listed_total{category="data"} 2
tiabridge_blocks_listed_total{category="function"} 1
# HELP tiabridge_blocks_visited_total Total number of blocks visited
# TYPE tiabridge_blocks_visited_total counter
tiabridge_blocks_visited_total 5
# HELP tiabridge_errors_by_class_total Total number of errors by error class
# TYPE tiabridge_errors_by_class_total counter
tiabridge_errors_by_class_total{class="no_controller"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(expected),
		"tiabridge_blocks_listed_total",
		"tiabridge_blocks_visited_total",
		"tiabridge_errors_by_class_total",
	))
	assert.Equal(t, 1, testutil.CollectAndCount(m.sessions))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSession("headless", "ok")
		m.RecordError("other")
		m.ObserveRun(time.Second)
		assert.NoError(t, m.WriteTextfile())
	})
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiabridge.prom")
	m := NewMetrics(MetricsConfig{Namespace: "tiabridge", File: path})
	m.RecordSessionRelease("ok")

	require.NoError(t, m.WriteTextfile())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `tiabridge_session_releases_total{result="ok"} 1`)
}

func TestStdoutTracer(t *testing.T) {
	var spans bytes.Buffer
	tracer, err := NewTracer(TracingConfig{Enabled: true, Exporter: "stdout"}, "tiabridge", "test", &spans)
	require.NoError(t, err)

	ctx, span := tracer.StartProjectSpan(context.Background(), "open", "/plc/demo.ap17")
	assert.NotEmpty(t, TraceID(ctx))
	RecordError(span, errors.New("locked"))
	span.End()

	require.NoError(t, tracer.Shutdown(context.Background()))
	assert.Contains(t, spans.String(), "project.open")
	assert.Contains(t, spans.String(), "/plc/demo.ap17")
}

func TestDisabledTracer(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{Exporter: "stdout"}, "tiabridge", "test", nil)
	require.NoError(t, err)

	_, span := tracer.StartSessionSpan(context.Background(), "start", "headless")
	RecordSuccess(span)
	span.End()
	assert.NoError(t, tracer.Shutdown(context.Background()))
	assert.Empty(t, TraceID(context.Background()))
}

func TestNewTelemetry(t *testing.T) {
	var logs bytes.Buffer
	cfg := DefaultConfig()
	cfg.Logging.Format = "json"

	tel, err := New(cfg, &logs, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, tel.RunID)

	tel.Logger.Info("hello")
	lines := decodeLines(t, &logs)
	require.Len(t, lines, 1)
	assert.Equal(t, tel.RunID, lines[0]["run_id"])

	assert.NoError(t, tel.Shutdown(context.Background()))

	bad := DefaultConfig()
	bad.Logging.Level = "loud"
	_, err = New(bad, &logs, nil)
	assert.Error(t, err)
}
