package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/piwi3910/tiabridge/pkg/blocks"
	"github.com/piwi3910/tiabridge/pkg/engine"
)

func newListBlocksCommand(opts *globalOptions) *cobra.Command {
	var (
		output string
		record string
	)

	cmd := &cobra.Command{
		Use:   "list-blocks <project_path>",
		Short: "List the DB and FB blocks of a project",
		Long: `Open a project without user interface and list the blocks of its controller
program: first every data block (DB), then every function block (FB).

The path may name a project file or a directory holding one. A block whose name
or type matches both rule sets appears in both listings.`,
		Example: `  # List the blocks of a project file
  tiabridge list-blocks "D:\plc\demo.ap17"

  # Resolve the project inside a directory and print tables
  tiabridge list-blocks --output table ./plant

  # Dry run against a fixture and record the result
  tiabridge --fixture plant.yaml list-blocks --record history.db ./plant`,
		Args: func(_ *cobra.Command, args []string) error {
			switch {
			case len(args) == 0:
				return engine.NewInvalidArgumentError("missing project path, usage: tiabridge list-blocks <project_path>", nil).
					WithCode(engine.ErrCodeValidation)
			case len(args) > 1:
				return engine.NewInvalidArgumentError(fmt.Sprintf("unexpected arguments after project path: %v", args[1:]), nil).
					WithCode(engine.ErrCodeValidation)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app

			if cmd.Flags().Changed("output") {
				a.cfg.Output.Format = output
			}
			format, err := blocks.ParseFormat(a.cfg.Output.Format)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("record") {
				a.cfg.Store.Path = record
			}

			ctx := cmd.Context()
			rec := a.startRecording(ctx, args[0], engine.ModeHeadless)

			result, err := a.inspect(ctx, engine.ModeHeadless, args[0], inspectHooks{
				listed: func(result *inspection) error {
					return printListings(cmd.OutOrStdout(), result, format)
				},
			})

			rec.finish(ctx, result, err)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, table, json)")
	cmd.Flags().StringVar(&record, "record", "", "record the inspection in this SQLite database")

	return cmd
}

// printListings writes every listing of result, each under a header naming
// its category. JSON output has no headers: one document per listing.
func printListings(w io.Writer, result *inspection, format blocks.Format) error {
	for _, l := range result.Listings {
		if format != blocks.FormatJSON {
			if _, err := fmt.Fprintf(w, "=== %s ===\n", l.Service.Category().Label()); err != nil {
				return err
			}
		}
		if err := l.Service.Print(w, l.Units, format); err != nil {
			return err
		}
	}
	return nil
}
