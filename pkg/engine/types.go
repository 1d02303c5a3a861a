package engine

import (
	"fmt"
	"strconv"
)

// Mode selects how the engineering environment is started.
type Mode string

const (
	// ModeInteractive starts the environment with its user interface.
	ModeInteractive Mode = "interactive"

	// ModeHeadless starts the environment without a user interface.
	ModeHeadless Mode = "headless"
)

// Validate checks that the mode is known.
func (m Mode) Validate() error {
	switch m {
	case ModeInteractive, ModeHeadless:
		return nil
	default:
		return NewInvalidArgumentError(fmt.Sprintf("unknown session mode %q", string(m)), nil)
	}
}

// SoftwareKind tags the variant held by Software.
type SoftwareKind string

const (
	SoftwareKindController SoftwareKind = "controller"
	SoftwareKindHMI        SoftwareKind = "hmi"
	SoftwareKindUnknown    SoftwareKind = "unknown"
)

// Software is the software hosted on a device item, narrowed by the
// environment driver to one of the known kinds.
type Software struct {
	// Kind is the variant tag.
	Kind SoftwareKind

	// Name is the display name of the software.
	Name string

	// Controller is set when Kind is SoftwareKindController.
	Controller *ControllerProgram
}

// AsController returns the controller program held by the variant.
func (s Software) AsController() (*ControllerProgram, bool) {
	if s.Kind != SoftwareKindController || s.Controller == nil {
		return nil, false
	}
	return s.Controller, true
}

// ControllerProgram is the control logic hosted on a device; the root of the
// block hierarchy.
type ControllerProgram struct {
	// Name is the display name of the program.
	Name string

	// Root is the top-level block group.
	Root GroupNode
}

// UnitRef is an immutable snapshot of a block taken when it was visited.
type UnitRef struct {
	// Name is empty when the block does not report one.
	Name string `json:"name"`

	// Number is nil when the block does not report one.
	Number *int `json:"number,omitempty"`

	// TypeTag is the native type name of the block.
	TypeTag string `json:"type"`
}

// NumberString renders the number, or placeholder when absent.
func (u UnitRef) NumberString(placeholder string) string {
	if u.Number == nil {
		return placeholder
	}
	return strconv.Itoa(*u.Number)
}

// Category is the semantic kind of a block.
type Category string

const (
	CategoryDataUnit     Category = "data"
	CategoryFunctionUnit Category = "function"
	CategoryUnclassified Category = "unclassified"
)

// Label is the short listing label of the category.
func (c Category) Label() string {
	switch c {
	case CategoryDataUnit:
		return "DB"
	case CategoryFunctionUnit:
		return "FB"
	default:
		return "-"
	}
}
