package blocks

import (
	"iter"

	"github.com/piwi3910/tiabridge/pkg/engine"
)

// Walker traverses a block hierarchy depth-first. For every group it emits
// the group's direct blocks first, then each child group's full sequence in
// the order the environment reports them.
//
// A Walker is single pass: once consumed, even partially, it continues where
// it stopped and never restarts. Its work stack lives on the heap, so deep
// hierarchies do not grow the call stack.
//
// The hierarchy must be a tree. Back-references are not detected and make
// the traversal run forever.
type Walker struct {
	acc   *Accessor
	stack []*frame

	groups int
	units  int
}

// frame is a group whose blocks are being emitted.
type frame struct {
	node   engine.GroupNode
	blocks []engine.BlockHandle
	loaded bool
	next   int
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithAccessor sets the accessor used to probe nodes.
func WithAccessor(acc *Accessor) WalkerOption {
	return func(w *Walker) {
		if acc != nil {
			w.acc = acc
		}
	}
}

// NewWalker creates a walker over the hierarchy rooted at root.
// A nil root yields an empty sequence.
func NewWalker(root engine.GroupNode, opts ...WalkerOption) *Walker {
	w := &Walker{acc: defaultAccessor}
	for _, opt := range opts {
		opt(w)
	}
	if root != nil {
		w.stack = append(w.stack, &frame{node: root})
	}
	return w
}

// Next returns the next block snapshot, or false when the traversal is over.
func (w *Walker) Next() (engine.UnitRef, bool) {
	for len(w.stack) > 0 {
		top := w.stack[len(w.stack)-1]

		if !top.loaded {
			top.blocks = w.acc.TryBlocks(top.node)
			top.loaded = true
			w.groups++
		}

		if top.next < len(top.blocks) {
			block := top.blocks[top.next]
			top.next++
			w.units++
			return w.acc.Snapshot(block), true
		}

		// Blocks drained: replace the group by its children, first child on top.
		w.stack = w.stack[:len(w.stack)-1]
		children := w.acc.TryGroups(top.node)
		for i := len(children) - 1; i >= 0; i-- {
			if children[i] == nil {
				continue
			}
			w.stack = append(w.stack, &frame{node: children[i]})
		}
	}
	return engine.UnitRef{}, false
}

// All returns the remaining sequence. Breaking out of a range loop leaves the
// walker positioned after the last yielded block.
func (w *Walker) All() iter.Seq[engine.UnitRef] {
	return func(yield func(engine.UnitRef) bool) {
		for {
			unit, ok := w.Next()
			if !ok || !yield(unit) {
				return
			}
		}
	}
}

// Stats returns how many groups and blocks have been visited so far.
func (w *Walker) Stats() (groups, units int) {
	return w.groups, w.units
}

// Walk returns the block sequence of the hierarchy rooted at root.
func Walk(root engine.GroupNode, opts ...WalkerOption) iter.Seq[engine.UnitRef] {
	return NewWalker(root, opts...).All()
}
