package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/piwi3910/tiabridge/pkg/engine"
	"github.com/piwi3910/tiabridge/pkg/telemetry"
)

// BuildInfo is the version information stamped at build time.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// Streams are the standard streams of a run.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Prompter reads interactive input. A readline prompter on a terminal,
	// or a plain line reader over In, is used when nil.
	Prompter Prompter
}

// StdStreams returns the process streams.
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// globalOptions holds the persistent flags and the run state they produce.
type globalOptions struct {
	configPath    string
	logLevel      string
	logFormat     string
	environment   string
	fixture       string
	metricsFile   string
	traceExporter string
	traceEndpoint string

	app *app
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string, info BuildInfo, streams Streams) int {
	timer := telemetry.NewTimer()
	opts := &globalOptions{}

	rootCmd := newRootCommand(opts, info, streams)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(streams.In)
	rootCmd.SetOut(streams.Out)
	rootCmd.SetErr(streams.Err)

	err := executeRecovered(ctx, rootCmd)
	code := engine.ExitCode(err)

	if err != nil {
		_, _ = fmt.Fprintf(streams.Err, "Error: %v\n", err)
	}

	if opts.app != nil {
		opts.app.finish(ctx, err, timer)
	}

	return code
}

// executeRecovered turns a panic escaping a command into an unhandled error.
func executeRecovered(ctx context.Context, cmd *cobra.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = engine.NewUnhandledError(fmt.Sprintf("unexpected failure: %v", r), nil)
		}
	}()
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(opts *globalOptions, info BuildInfo, streams Streams) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tiabridge [command]",
		Short: "tiabridge - engineering project inspection bridge",
		Long: `tiabridge opens an engineering project through an engineering environment,
finds its controller program and lists the program's blocks.

Without a command it runs interactively: it asks for a project path, opens the
project with the environment's user interface and prints what it finds.

Exit codes:
  0   success
  1   invalid arguments
  2   no controller program found
  3   the project could not be resolved or opened
  99  any other failure`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return engine.NewInvalidArgumentError(fmt.Sprintf("unknown command %q", args[0]), nil).
					WithCode(engine.ErrCodeValidation)
			}
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.setup(cmd, info, streams)
			if err != nil {
				return err
			}
			opts.app = a
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInteractive(cmd.Context(), opts.app)
		},
	}

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return engine.NewInvalidArgumentError(err.Error(), err).WithCode(engine.ErrCodeValidation)
	})

	// Persistent flags available to all commands
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file path (CUE)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (console, json)")
	flags.StringVar(&opts.environment, "environment", "", "engineering environment driver")
	flags.StringVar(&opts.fixture, "fixture", "", "YAML description for the fixture environment")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	flags.StringVar(&opts.traceExporter, "trace", "", "export spans (stdout, otlp)")
	flags.StringVar(&opts.traceEndpoint, "trace-endpoint", "", "OTLP collector endpoint")

	rootCmd.AddCommand(newListBlocksCommand(opts))
	rootCmd.AddCommand(newHistoryCommand(opts))
	rootCmd.AddCommand(newVersionCommand(info))

	return rootCmd
}

// noArgs rejects positional arguments as invalid arguments.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return engine.NewInvalidArgumentError(fmt.Sprintf("%s takes no arguments, got %v", cmd.Name(), args), nil).
			WithCode(engine.ErrCodeValidation)
	}
	return nil
}
