package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"

	"github.com/piwi3910/tiabridge/pkg/engine"
	"github.com/piwi3910/tiabridge/pkg/telemetry"
)

// DefaultDriver is the environment driver used when none is configured.
const DefaultDriver = "fixture"

// LoadError reports every problem found in a configuration file.
type LoadError struct {
	File   string
	Errors []ValidationError
}

func (e *LoadError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, v := range e.Errors {
		msgs = append(msgs, v.String())
	}
	return fmt.Sprintf("invalid configuration %s: %s", e.File, strings.Join(msgs, "; "))
}

// Loader parses and validates CUE configuration files.
type Loader struct {
	ctx       *cue.Context
	schema    cue.Value
	validator *validator.Validate
}

// NewLoader creates a loader with the built-in schema.
func NewLoader() (*Loader, error) {
	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return nil, err
	}
	return &Loader{
		ctx:       ctx,
		schema:    schema,
		validator: validator.New(),
	}, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	tc := telemetry.DefaultConfig()
	return &Config{
		Environment: EnvironmentConfig{Driver: DefaultDriver},
		Logging:     tc.Logging,
		Tracing: TracingConfig{
			Enabled:  tc.Tracing.Enabled,
			Exporter: tc.Tracing.Exporter,
			Insecure: tc.Tracing.Insecure,
			Timeout:  tc.Tracing.ExportTimeout.String(),
		},
		Metrics: tc.Metrics,
		Output:  OutputConfig{Format: "text"},
	}
}

// Load reads the configuration file at path. An empty path returns Default().
// Problems with the file are classified as invalid arguments.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	l, err := NewLoader()
	if err != nil {
		return nil, engine.NewUnhandledError("failed to initialize configuration loader", err)
	}
	cfg, err := l.LoadFile(path)
	if err != nil {
		return nil, engine.NewInvalidArgumentError("invalid configuration file", err).
			WithPath(path).
			WithOperation("config.load").
			WithCode(engine.ErrCodeValidation)
	}
	return cfg, nil
}

// LoadFile reads and validates the CUE file at path. Relative file paths in
// the configuration are resolved against the directory of path.
func (l *Loader) LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := l.LoadBytes(path, content)
	if err != nil {
		return nil, err
	}

	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// LoadBytes parses src as a CUE configuration named filename.
func (l *Loader) LoadBytes(filename string, src []byte) (*Config, error) {
	val := l.ctx.CompileBytes(src, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, &LoadError{File: filename, Errors: convertCUEErrors(err)}
	}

	unified := l.schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{File: filename, Errors: convertCUEErrors(err)}
	}

	var decoded Config
	if err := unified.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg := Default()
	cfg.merge(&decoded)

	if err := l.validator.Struct(cfg); err != nil {
		return nil, &LoadError{File: filename, Errors: convertValidatorErrors(err)}
	}

	return cfg, nil
}

// merge copies every value set in other over c.
func (c *Config) merge(other *Config) {
	if other.Environment.Driver != "" {
		c.Environment.Driver = other.Environment.Driver
	}
	if other.Environment.Fixture != "" {
		c.Environment.Fixture = other.Environment.Fixture
	}
	if len(other.Environment.Options) > 0 {
		c.Environment.Options = other.Environment.Options
	}
	if len(other.Project.Patterns) > 0 {
		c.Project.Patterns = other.Project.Patterns
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Format != "" {
		c.Logging.Format = other.Logging.Format
	}
	if other.Logging.Output != "" {
		c.Logging.Output = other.Logging.Output
	}
	if other.Logging.TimeFormat != "" {
		c.Logging.TimeFormat = other.Logging.TimeFormat
	}
	c.Logging.EnableCaller = c.Logging.EnableCaller || other.Logging.EnableCaller
	c.Logging.NoColor = c.Logging.NoColor || other.Logging.NoColor

	c.Tracing.Enabled = c.Tracing.Enabled || other.Tracing.Enabled
	if other.Tracing.Exporter != "" {
		c.Tracing.Exporter = other.Tracing.Exporter
	}
	if other.Tracing.Endpoint != "" {
		c.Tracing.Endpoint = other.Tracing.Endpoint
	}
	if other.Tracing.Timeout != "" {
		c.Tracing.Timeout = other.Tracing.Timeout
	}

	if other.Metrics.File != "" {
		c.Metrics.File = other.Metrics.File
	}
	if other.Metrics.Namespace != "" {
		c.Metrics.Namespace = other.Metrics.Namespace
	}
	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Classifier.Script != "" {
		c.Classifier.Script = other.Classifier.Script
	}
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}
}

func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{
		&c.Environment.Fixture,
		&c.Classifier.Script,
		&c.Store.Path,
		&c.Metrics.File,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// convertCUEErrors converts CUE errors to ValidationError slice.
func convertCUEErrors(err error) []ValidationError {
	var out []ValidationError

	for _, e := range errors.Errors(err) {
		path := e.Path()
		if len(path) > 0 && path[0] == "#Config" {
			path = path[1:]
		}
		v := ValidationError{
			Path:    strings.Join(path, "."),
			Message: errors.Details(e, nil),
		}
		if pos := errors.Positions(e); len(pos) > 0 {
			v.File = pos[0].Filename()
			v.Line = pos[0].Line()
			v.Column = pos[0].Column()
		}
		out = append(out, v)
	}

	return out
}

func convertValidatorErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return []ValidationError{{Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Path:    strings.TrimPrefix(fe.Namespace(), "Config."),
			Message: fmt.Sprintf("failed on the %q rule", fe.Tag()),
		})
	}
	return out
}
