package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/piwi3910/tiabridge/pkg/telemetry"
)

// Config is the tiabridge configuration file.
type Config struct {
	// Environment selects the engineering environment driver.
	Environment EnvironmentConfig `json:"environment"`

	// Project configures project file resolution.
	Project ProjectConfig `json:"project"`

	// Logging configures structured logging.
	Logging telemetry.LoggingConfig `json:"logging"`

	// Tracing configures span export.
	Tracing TracingConfig `json:"tracing"`

	// Metrics configures the metrics textfile.
	Metrics telemetry.MetricsConfig `json:"metrics"`

	// Output configures listing output.
	Output OutputConfig `json:"output"`

	// Classifier configures block classification.
	Classifier ClassifierConfig `json:"classifier"`

	// Store configures the inspection history database.
	Store StoreConfig `json:"store"`
}

// EnvironmentConfig selects and configures an environment driver.
type EnvironmentConfig struct {
	// Driver is the registered driver name (e.g., "fixture").
	Driver string `json:"driver" validate:"required"`

	// Fixture is the YAML description used by the fixture driver.
	Fixture string `json:"fixture,omitempty"`

	// Options are driver-specific settings.
	Options map[string]string `json:"options,omitempty"`
}

// ProjectConfig configures how project paths are resolved.
type ProjectConfig struct {
	// Patterns are glob patterns matched against directory entries.
	// The driver's own patterns are used when empty.
	Patterns []string `json:"patterns,omitempty" validate:"dive,required"`
}

// TracingConfig mirrors telemetry.TracingConfig with a textual timeout.
type TracingConfig struct {
	Enabled  bool   `json:"enabled"`
	Exporter string `json:"exporter" validate:"omitempty,oneof=otlp stdout none"`
	Endpoint string `json:"endpoint,omitempty"`
	Insecure bool   `json:"insecure"`

	// Timeout is a Go duration string (e.g., "10s").
	Timeout string `json:"timeout,omitempty"`
}

// OutputConfig configures listing output.
type OutputConfig struct {
	// Format is text, table or json.
	Format string `json:"format" validate:"omitempty,oneof=text table json"`
}

// ClassifierConfig configures block classification.
type ClassifierConfig struct {
	// Script is a Starlark file defining classify(name, type_tag).
	// The built-in substring rules are used when empty.
	Script string `json:"script,omitempty"`
}

// StoreConfig configures the inspection history database.
type StoreConfig struct {
	// Path is the SQLite database file. History is not recorded when empty.
	Path string `json:"path,omitempty"`
}

// ValidationError is a problem found in a configuration file.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the configuration path of the error (e.g., "logging.level").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`
}

func (v ValidationError) String() string {
	var b strings.Builder
	if v.File != "" {
		b.WriteString(v.File)
		if v.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", v.Line, v.Column)
		}
		b.WriteString(": ")
	}
	if v.Path != "" {
		b.WriteString(v.Path)
		b.WriteString(": ")
	}
	b.WriteString(v.Message)
	return b.String()
}

// Telemetry returns the telemetry configuration for a run of version.
func (c *Config) Telemetry(version string) (*telemetry.Config, error) {
	tc := telemetry.DefaultConfig()
	tc.ServiceVersion = version
	tc.Logging = c.Logging
	tc.Metrics = c.Metrics
	tc.Tracing = telemetry.TracingConfig{
		Enabled:  c.Tracing.Enabled,
		Exporter: c.Tracing.Exporter,
		Endpoint: c.Tracing.Endpoint,
		Insecure: c.Tracing.Insecure,
	}

	tc.Tracing.ExportTimeout = 10 * time.Second
	if c.Tracing.Timeout != "" {
		d, err := time.ParseDuration(c.Tracing.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid tracing timeout %q: %w", c.Tracing.Timeout, err)
		}
		tc.Tracing.ExportTimeout = d
	}

	if err := tc.Validate(); err != nil {
		return nil, err
	}
	return tc, nil
}
