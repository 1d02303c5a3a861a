package telemetry

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
)

// Telemetry bundles the logger, tracer and metrics of one run.
type Telemetry struct {
	RunID   string
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Config  *Config
}

// New creates the telemetry of one run. Logs go to logOut, exported spans to
// spanOut; nil selects the configured outputs.
func New(cfg *Config, logOut, spanOut io.Writer) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var logger *Logger
	if logOut != nil {
		logger = NewLoggerWithWriter(logOut, cfg.Logging)
	} else {
		var err error
		logger, err = NewLogger(cfg.Logging)
		if err != nil {
			return nil, err
		}
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, spanOut)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()

	return &Telemetry{
		RunID:   runID,
		Logger:  logger.WithRunID(runID),
		Tracer:  tracer,
		Metrics: NewMetrics(cfg.Metrics),
		Config:  cfg,
	}, nil
}

// Discard returns telemetry that records nothing.
func Discard() *Telemetry {
	return &Telemetry{
		Logger:  Nop(),
		Tracer:  NoopTracer(),
		Metrics: NewMetrics(MetricsConfig{}),
		Config:  DefaultConfig(),
	}
}

// Shutdown flushes spans and writes the metrics textfile. Both steps run even
// when the first fails.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.Tracer.Shutdown(ctx),
		t.Metrics.WriteTextfile(),
	)
}
