package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/tiabridge/pkg/engine"
)

func newLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader()
	require.NoError(t, err)
	return l
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultDriver, cfg.Environment.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Empty(t, cfg.Store.Path)

	tc, err := cfg.Telemetry("1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", tc.ServiceVersion)
	assert.Equal(t, 10*time.Second, tc.Tracing.ExportTimeout)
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadBytes(t *testing.T) {
	src := `
environment: {
	driver:  "fixture"
	fixture: "/srv/plant.yaml"
}
project: patterns: ["*.ap17", "*.ap18"]
logging: {
	level:  "debug"
	format: "json"
}
tracing: {
	enabled:  true
	exporter: "otlp"
	endpoint: "collector:4317"
	timeout:  "3s"
}
output: format: "table"
`
	cfg, err := newLoader(t).LoadBytes("tiabridge.cue", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "/srv/plant.yaml", cfg.Environment.Fixture)
	assert.Equal(t, []string{"*.ap17", "*.ap18"}, cfg.Project.Patterns)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output, "unset fields keep defaults")
	assert.Equal(t, "table", cfg.Output.Format)

	tc, err := cfg.Telemetry("dev")
	require.NoError(t, err)
	assert.True(t, tc.Tracing.Enabled)
	assert.Equal(t, 3*time.Second, tc.Tracing.ExportTimeout)
}

func TestLoadBytesRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantPath string
	}{
		{name: "syntax error", src: "logging: {"},
		{name: "unknown field", src: `loging: level: "debug"`},
		{name: "bad level", src: `logging: level: "verbose"`, wantPath: "logging.level"},
		{name: "bad output format", src: `output: format: "xml"`, wantPath: "output.format"},
		{name: "wrong type", src: `tracing: enabled: "yes"`, wantPath: "tracing.enabled"},
		{name: "empty pattern", src: `project: patterns: [""]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newLoader(t).LoadBytes("bad.cue", []byte(tt.src))
			require.Error(t, err)

			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			require.NotEmpty(t, loadErr.Errors)
			if tt.wantPath != "" {
				paths := make([]string, 0, len(loadErr.Errors))
				for _, v := range loadErr.Errors {
					paths = append(paths, v.Path)
				}
				assert.Contains(t, paths, tt.wantPath)
			}
		})
	}
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiabridge.cue")
	src := `
environment: fixture: "plant.yaml"
classifier: script: "rules/classify.star"
store: path: "/var/lib/tiabridge/history.db"
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "plant.yaml"), cfg.Environment.Fixture)
	assert.Equal(t, filepath.Join(dir, "rules", "classify.star"), cfg.Classifier.Script)
	assert.Equal(t, "/var/lib/tiabridge/history.db", cfg.Store.Path)
}

func TestLoadErrorsAreInvalidArguments(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cue"))
	assert.True(t, engine.IsInvalidArgument(err))

	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(`output: format: "xml"`), 0o600))
	_, err = Load(path)
	assert.True(t, engine.IsInvalidArgument(err))
	assert.Equal(t, engine.ExitInvalidArguments, engine.ExitCode(err))
}
