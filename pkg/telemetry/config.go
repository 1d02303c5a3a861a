package telemetry

import (
	"fmt"
	"time"
)

// Config contains the telemetry configuration for a tiabridge run.
type Config struct {
	// ServiceName is the name of the service for telemetry identification.
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Logging contains logging configuration.
	Logging LoggingConfig

	// Tracing contains tracing configuration.
	Tracing TracingConfig

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string `json:"level" validate:"omitempty,oneof=trace debug info warn error"`

	// Format specifies the log format (console, json).
	Format string `json:"format" validate:"omitempty,oneof=console json"`

	// Output specifies where logs are written (stdout, stderr, file path).
	Output string `json:"output"`

	// EnableCaller adds file:line caller information to logs.
	EnableCaller bool `json:"caller"`

	// NoColor disables ANSI colors in console format.
	NoColor bool `json:"no_color"`

	// TimeFormat specifies the console timestamp format (rfc3339, kitchen).
	TimeFormat string `json:"time_format"`
}

// TracingConfig configures tracing.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	Enabled bool `json:"enabled"`

	// Exporter specifies the trace exporter (otlp, stdout, none).
	Exporter string `json:"exporter" validate:"omitempty,oneof=otlp stdout none"`

	// Endpoint is the OTLP collector endpoint.
	Endpoint string `json:"endpoint"`

	// ExportTimeout is the timeout for trace export.
	ExportTimeout time.Duration `json:"-"`

	// Insecure disables TLS for the exporter connection.
	Insecure bool `json:"insecure"`
}

// MetricsConfig configures metrics collection.
type MetricsConfig struct {
	// File is the path of a Prometheus textfile written at the end of the run.
	// Metrics are collected but not written when empty.
	File string `json:"file"`

	// Namespace is the metrics namespace prefix.
	Namespace string `json:"namespace"`
}

// DefaultConfig returns a default telemetry configuration.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "tiabridge",
		ServiceVersion: "dev",
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stderr",
			TimeFormat: "rfc3339",
		},
		Tracing: TracingConfig{
			Enabled:       false,
			Exporter:      "stdout",
			ExportTimeout: 10 * time.Second,
			Insecure:      true,
		},
		Metrics: MetricsConfig{
			Namespace: "tiabridge",
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'console' or 'json')", c.Logging.Format)
	}

	validExporters := map[string]bool{"otlp": true, "stdout": true, "none": true}
	if c.Tracing.Enabled && !validExporters[c.Tracing.Exporter] {
		return fmt.Errorf("invalid trace exporter: %s", c.Tracing.Exporter)
	}

	if c.Tracing.Enabled && c.Tracing.Exporter == "otlp" && c.Tracing.Endpoint == "" {
		return fmt.Errorf("otlp exporter requires an endpoint")
	}

	return nil
}
