package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/piwi3910/tiabridge/pkg/blocks"
	"github.com/piwi3910/tiabridge/pkg/config"
	"github.com/piwi3910/tiabridge/pkg/engine"
	"github.com/piwi3910/tiabridge/pkg/environments"
	"github.com/piwi3910/tiabridge/pkg/environments/fixture"
	"github.com/piwi3910/tiabridge/pkg/project"
	"github.com/piwi3910/tiabridge/pkg/telemetry"
)

// shutdownTimeout bounds span flushing at the end of a run.
const shutdownTimeout = 5 * time.Second

// app is the state shared by the commands of one run.
type app struct {
	cfg     *config.Config
	tel     *telemetry.Telemetry
	logger  *telemetry.Logger
	drivers *environments.Registry
	streams Streams
}

// setup loads the configuration, applies flag overrides and starts telemetry.
func (o *globalOptions) setup(cmd *cobra.Command, info BuildInfo, streams Streams) (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	o.applyOverrides(cmd, cfg)

	tcfg, err := cfg.Telemetry(info.Version)
	if err != nil {
		return nil, engine.NewInvalidArgumentError("invalid telemetry settings", err).
			WithOperation("config.telemetry")
	}

	logOut := streams.Err
	if cfg.Logging.Output != "" && cfg.Logging.Output != "stderr" {
		logOut = nil
	}
	tel, err := telemetry.New(tcfg, logOut, streams.Err)
	if err != nil {
		return nil, engine.NewInvalidArgumentError("failed to initialize telemetry", err).
			WithOperation("telemetry.init")
	}

	drivers := environments.NewRegistry()
	if err := drivers.Register(fixture.DriverName, fixture.Factory); err != nil {
		return nil, engine.NewUnhandledError("failed to register environment drivers", err)
	}

	a := &app{
		cfg:     cfg,
		tel:     tel,
		logger:  tel.Logger.NewComponentLogger("cli"),
		drivers: drivers,
		streams: streams,
	}
	a.logger.WithField("command", cmd.Name()).Debug("run started")
	return a, nil
}

// applyOverrides lays explicitly set flags over the file configuration.
func (o *globalOptions) applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}
	if flags.Changed("environment") {
		cfg.Environment.Driver = o.environment
	}
	if flags.Changed("fixture") {
		cfg.Environment.Fixture = o.fixture
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.File = o.metricsFile
	}
	if flags.Changed("trace") {
		cfg.Tracing.Enabled = o.traceExporter != "none"
		cfg.Tracing.Exporter = o.traceExporter
	}
	if flags.Changed("trace-endpoint") {
		cfg.Tracing.Endpoint = o.traceEndpoint
	}
}

// environment builds the configured engineering environment driver.
func (a *app) environment() (engine.Environment, error) {
	return a.drivers.New(a.cfg.Environment.Driver, environments.DriverConfig{
		Fixture: a.cfg.Environment.Fixture,
		Options: a.cfg.Environment.Options,
		Logger:  a.tel.Logger,
	})
}

// classifier returns the configured block classifier.
func (a *app) classifier() (blocks.Classifier, error) {
	if a.cfg.Classifier.Script == "" {
		return blocks.SubstringClassifier{}, nil
	}
	c, err := blocks.LoadScriptClassifier(a.cfg.Classifier.Script, a.tel.Logger)
	if err != nil {
		return nil, engine.NewInvalidArgumentError("failed to load classifier script", err).
			WithPath(a.cfg.Classifier.Script)
	}
	return c, nil
}

// locator returns a project locator using the configured patterns, falling
// back to the patterns the environment declares.
func (a *app) locator(env engine.Environment) *project.Locator {
	patterns := a.cfg.Project.Patterns
	if len(patterns) == 0 && env != nil {
		patterns = env.ProjectPatterns()
	}
	return project.NewLocator(a.tel.Logger, patterns)
}

// finish records the run outcome and flushes telemetry.
func (a *app) finish(ctx context.Context, err error, timer *telemetry.Timer) {
	if err != nil {
		a.tel.Metrics.RecordError(string(engine.ClassOf(err)))
	}
	a.tel.Metrics.ObserveRun(timer.Duration())

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if shutdownErr := a.tel.Shutdown(ctx); shutdownErr != nil {
		a.logger.WithError(shutdownErr).Warn("failed to flush telemetry")
	}

	a.logger.WithFields(map[string]interface{}{
		"exit_code": engine.ExitCode(err),
		"duration":  timer.Duration().String(),
	}).Debug("run finished")
}
