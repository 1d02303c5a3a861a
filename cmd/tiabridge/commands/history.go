package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/piwi3910/tiabridge/pkg/blocks"
	"github.com/piwi3910/tiabridge/pkg/engine"
	"github.com/piwi3910/tiabridge/pkg/stores"
)

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	var (
		storePath string
		limit     int
		offset    int
		output    string
		unitsOf   string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded inspections",
		Long: `Show the inspections recorded with list-blocks --record, or in interactive
mode when a store is configured, newest first.`,
		Example: `  # Show the last 20 inspections
  tiabridge history --store history.db

  # Emit JSON
  tiabridge history --store history.db --output json

  # Show the blocks listed by one inspection
  tiabridge history --store history.db --units 3f2b...`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := opts.app

			path := a.cfg.Store.Path
			if cmd.Flags().Changed("store") {
				path = storePath
			}
			if path == "" {
				return engine.NewInvalidArgumentError("no history store given, use --store or store.path", nil).
					WithCode(engine.ErrCodeValidation)
			}
			if limit <= 0 || offset < 0 {
				return engine.NewInvalidArgumentError("--limit must be positive and --offset not negative", nil).
					WithCode(engine.ErrCodeValidation)
			}

			if cmd.Flags().Changed("output") {
				a.cfg.Output.Format = output
			}
			format, err := blocks.ParseFormat(a.cfg.Output.Format)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := stores.Open(ctx, path)
			if err != nil {
				return engine.NewOtherError("failed to open history store", err).
					WithPath(path).
					WithOperation("history.open")
			}
			defer func() { _ = store.Close() }()

			if unitsOf != "" {
				result, err := recordedListings(cmd, store, unitsOf)
				if err != nil {
					return err
				}
				return printListings(cmd.OutOrStdout(), result, format)
			}

			inspections, err := store.ListInspections(ctx, limit, offset)
			if err != nil {
				return engine.NewOtherError("failed to list inspections", err).
					WithPath(path).
					WithOperation("history.list")
			}

			if format == blocks.FormatJSON {
				return printHistoryJSON(cmd.OutOrStdout(), inspections)
			}
			printHistoryTable(cmd.OutOrStdout(), inspections)
			return nil
		},
	}

	cmd.Flags().StringVar(&storePath, "store", "", "SQLite history database")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of inspections to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of inspections to skip")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format (text, table, json)")
	cmd.Flags().StringVar(&unitsOf, "units", "", "show the blocks recorded for this inspection ID")

	return cmd
}

// recordedListings loads the units stored for inspection id, one listing per
// category in the order list-blocks prints them.
func recordedListings(cmd *cobra.Command, store *stores.SQLiteStore, id string) (*inspection, error) {
	ctx := cmd.Context()
	if _, err := store.GetInspection(ctx, id); err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return nil, engine.NewInvalidArgumentError(fmt.Sprintf("unknown inspection %q", id), err).
				WithCode(engine.ErrCodeValidation)
		}
		return nil, engine.NewOtherError("failed to load inspection", err).
			WithOperation("history.units")
	}

	result := &inspection{}
	for _, svc := range []*blocks.ListingService{blocks.DataUnitListing(), blocks.FunctionUnitListing()} {
		records, err := store.ListUnits(ctx, id, svc.Category())
		if err != nil {
			return nil, engine.NewOtherError("failed to list recorded units", err).
				WithOperation("history.units")
		}
		units := make([]engine.UnitRef, 0, len(records))
		for _, r := range records {
			units = append(units, r.UnitRef)
		}
		result.Listings = append(result.Listings, listing{Service: svc, Units: units})
	}
	return result, nil
}

func printHistoryTable(w io.Writer, inspections []*stores.Inspection) {
	if len(inspections) == 0 {
		_, _ = fmt.Fprintln(w, "No inspections recorded")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Started", "Mode", "Status", "Project", "Controller", "DB", "FB", "Error"})
	for _, insp := range inspections {
		t.AppendRow(table.Row{
			insp.ID,
			insp.StartedAt.Local().Format(time.DateTime),
			insp.Mode,
			insp.Status,
			orDefault(insp.ProjectName, insp.ProjectPath),
			orDefault(insp.Controller, "-"),
			insp.DataUnits,
			insp.FunctionUnits,
			orDefault(insp.ErrorClass, ""),
		})
	}
	t.Render()
}

func printHistoryJSON(w io.Writer, inspections []*stores.Inspection) error {
	if inspections == nil {
		inspections = []*stores.Inspection{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(inspections)
}

func orDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
