package blocks

import (
	"errors"
	"fmt"

	"github.com/piwi3910/tiabridge/pkg/engine"
	"github.com/piwi3910/tiabridge/pkg/telemetry"
)

// UnknownTypeTag is reported for nil block handles.
const UnknownTypeTag = "(unknown-type)"

// Collection names a child collection a group node may expose.
type Collection string

const (
	CollectionBlocks Collection = "blocks"
	CollectionGroups Collection = "groups"
)

// Accessor reads optional capabilities of block-tree nodes. A capability that
// is missing, reports an error or panics reads as its neutral default; probe
// failures are logged at debug level and never returned.
type Accessor struct {
	logger *telemetry.Logger
}

// NewAccessor creates an accessor logging probe failures to logger.
func NewAccessor(logger *telemetry.Logger) *Accessor {
	if logger == nil {
		logger = telemetry.Nop()
	}
	return &Accessor{logger: logger}
}

var defaultAccessor = NewAccessor(nil)

// Supports reports whether node implements the collection capability at all.
// A node that implements it may still fail when probed.
func Supports(node engine.GroupNode, which Collection) bool {
	switch which {
	case CollectionBlocks:
		_, ok := node.(engine.BlockLister)
		return ok
	case CollectionGroups:
		_, ok := node.(engine.GroupLister)
		return ok
	default:
		return false
	}
}

// TryCollection returns the named child collection of node as a
// []engine.BlockHandle or a []engine.GroupNode. ok is false when node does
// not expose the collection, or when reading it fails or panics.
func (a *Accessor) TryCollection(node engine.GroupNode, which Collection) (any, bool) {
	if !Supports(node, which) {
		return nil, false
	}
	switch which {
	case CollectionBlocks:
		return probe(a.logger, string(which), node.(engine.BlockLister).Blocks)
	case CollectionGroups:
		return probe(a.logger, string(which), node.(engine.GroupLister).Groups)
	default:
		return nil, false
	}
}

// TryBlocks returns the direct blocks of node, or nil when unsupported.
func (a *Accessor) TryBlocks(node engine.GroupNode) []engine.BlockHandle {
	seq, ok := a.TryCollection(node, CollectionBlocks)
	if !ok {
		return nil
	}
	return seq.([]engine.BlockHandle)
}

// TryGroups returns the child groups of node, or nil when unsupported.
func (a *Accessor) TryGroups(node engine.GroupNode) []engine.GroupNode {
	seq, ok := a.TryCollection(node, CollectionGroups)
	if !ok {
		return nil
	}
	return seq.([]engine.GroupNode)
}

// SafeName returns the block name, or "" when the block reports none.
func (a *Accessor) SafeName(block engine.BlockHandle) string {
	named, ok := block.(engine.Named)
	if !ok {
		return ""
	}
	name, _ := probe(a.logger, "name", named.Name)
	return name
}

// SafeNumber returns the block number, or nil when the block reports none.
func (a *Accessor) SafeNumber(block engine.BlockHandle) *int {
	numbered, ok := block.(engine.Numbered)
	if !ok {
		return nil
	}
	number, ok := probe(a.logger, "number", numbered.Number)
	if !ok {
		return nil
	}
	return &number
}

// TypeTag returns the native type name of the block.
func (a *Accessor) TypeTag(block engine.BlockHandle) string {
	if block == nil {
		return UnknownTypeTag
	}
	tag, ok := probe(a.logger, "type", func() (string, error) {
		return block.TypeTag(), nil
	})
	if !ok {
		return UnknownTypeTag
	}
	return tag
}

// Snapshot captures the block as an immutable UnitRef.
func (a *Accessor) Snapshot(block engine.BlockHandle) engine.UnitRef {
	return engine.UnitRef{
		Name:    a.SafeName(block),
		Number:  a.SafeNumber(block),
		TypeTag: a.TypeTag(block),
	}
}

// SafeName reads a block name without a logger.
func SafeName(block engine.BlockHandle) string {
	return defaultAccessor.SafeName(block)
}

// SafeNumber reads a block number without a logger.
func SafeNumber(block engine.BlockHandle) *int {
	return defaultAccessor.SafeNumber(block)
}

// probe calls read and converts a failure of any kind into (zero, false).
func probe[T any](logger *telemetry.Logger, what string, read func() (T, error)) (value T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithError(fmt.Errorf("%v", r)).Debugf("%s probe panicked, treating capability as absent", what)
			var zero T
			value, ok = zero, false
		}
	}()

	value, err := read()
	if err != nil {
		if errors.Is(err, engine.ErrCapabilityAbsent) {
			logger.Debugf("node has no %s, skipping", what)
		} else {
			logger.WithError(err).Debugf("%s probe failed, treating capability as absent", what)
		}
		var zero T
		return zero, false
	}
	return value, true
}
