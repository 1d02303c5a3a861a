package blocks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/piwi3910/tiabridge/pkg/engine"
	"github.com/piwi3910/tiabridge/pkg/telemetry"
)

// Format selects how a listing is printed.
type Format string

const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat validates an output format name. Empty selects text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatTable, FormatJSON:
		return Format(s), nil
	default:
		return "", engine.NewInvalidArgumentError(fmt.Sprintf("unknown output format %q (want text, table or json)", s), nil)
	}
}

// ListingService lists the blocks of one category. Every service walks the
// hierarchy and classifies on its own, so a unit matching several rules is
// listed by each matching service.
type ListingService struct {
	category   engine.Category
	classifier Classifier
	tel        *telemetry.Telemetry
	acc        *Accessor
}

// ListingOption configures a ListingService.
type ListingOption func(*ListingService)

// WithClassifier replaces the default substring classifier.
func WithClassifier(c Classifier) ListingOption {
	return func(s *ListingService) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithTelemetry attaches logging, tracing and metrics.
func WithTelemetry(tel *telemetry.Telemetry) ListingOption {
	return func(s *ListingService) {
		if tel != nil {
			s.tel = tel
		}
	}
}

// NewListingService creates a listing for category.
func NewListingService(category engine.Category, opts ...ListingOption) *ListingService {
	s := &ListingService{
		category:   category,
		classifier: SubstringClassifier{},
		tel:        telemetry.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.acc = NewAccessor(s.tel.Logger.NewComponentLogger("blocks"))
	return s
}

// DataUnitListing lists data blocks.
func DataUnitListing(opts ...ListingOption) *ListingService {
	return NewListingService(engine.CategoryDataUnit, opts...)
}

// FunctionUnitListing lists function blocks.
func FunctionUnitListing(opts ...ListingOption) *ListingService {
	return NewListingService(engine.CategoryFunctionUnit, opts...)
}

// Category returns the category this service lists.
func (s *ListingService) Category() engine.Category {
	return s.category
}

// List walks the hierarchy under root and returns the matching units in
// traversal order.
func (s *ListingService) List(ctx context.Context, root engine.GroupNode) []engine.UnitRef {
	_, span := s.tel.Tracer.Start(ctx, "blocks.list", telemetry.AttrCategory.String(string(s.category)))
	defer span.End()

	s.tel.Logger.Debugf("enumerating %s blocks", s.category.Label())

	walker := NewWalker(root, WithAccessor(s.acc))
	var units []engine.UnitRef
	for unit := range walker.All() {
		if s.classifier.Matches(unit, s.category) {
			units = append(units, unit)
		}
	}

	groups, visited := walker.Stats()
	s.tel.Metrics.RecordWalk(groups, visited)
	s.tel.Metrics.RecordListed(string(s.category), len(units))
	span.SetAttributes(telemetry.AttrUnitCount.Int(len(units)))

	s.tel.Logger.Zerolog().Debug().
		Str("category", string(s.category)).
		Int("groups", groups).
		Int("visited", visited).
		Int("listed", len(units)).
		Msg("listing complete")

	return units
}

// Print renders units in the given format.
func (s *ListingService) Print(w io.Writer, units []engine.UnitRef, format Format) error {
	switch format {
	case FormatJSON:
		return printJSON(w, s.category, units)
	case FormatTable:
		return printTable(w, s.category, units)
	default:
		return printText(w, s.category, units)
	}
}

func printText(w io.Writer, category engine.Category, units []engine.UnitRef) error {
	label := category.Label()
	for _, u := range units {
		if _, err := fmt.Fprintf(w, "%s Name: %s, Number: %s, Type: %s\n",
			label, u.Name, u.NumberString("-"), u.TypeTag); err != nil {
			return err
		}
	}
	return nil
}

func printTable(w io.Writer, category engine.Category, units []engine.UnitRef) error {
	if len(units) == 0 {
		_, err := fmt.Fprintf(w, "(0 %s blocks)\n", category.Label())
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Number", "Type"})
	for _, u := range units {
		t.AppendRow(table.Row{u.Name, u.NumberString("-"), u.TypeTag})
	}
	t.Render()

	_, err := fmt.Fprintf(w, "(%d %s blocks)\n", len(units), category.Label())
	return err
}

func printJSON(w io.Writer, category engine.Category, units []engine.UnitRef) error {
	if units == nil {
		units = []engine.UnitRef{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Category engine.Category  `json:"category"`
		Units    []engine.UnitRef `json:"units"`
	}{category, units})
}
