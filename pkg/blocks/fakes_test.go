package blocks

import (
	"errors"

	"github.com/piwi3910/tiabridge/pkg/engine"
)

// block implements every optional block capability.
type block struct {
	name   string
	number int
	tag    string
}

func (b block) TypeTag() string       { return b.tag }
func (b block) Name() (string, error) { return b.name, nil }
func (b block) Number() (int, error)  { return b.number, nil }

// bareBlock only reports its type tag.
type bareBlock struct{ tag string }

func (b bareBlock) TypeTag() string { return b.tag }

// brokenBlock implements the capabilities but fails every probe.
type brokenBlock struct{}

func (brokenBlock) TypeTag() string       { return "Broken" }
func (brokenBlock) Name() (string, error) { return "", engine.ErrCapabilityAbsent }
func (brokenBlock) Number() (int, error)  { panic("number read on detached handle") }

// group exposes both blocks and subgroups.
type group struct {
	blocks []engine.BlockHandle
	groups []engine.GroupNode
}

func (g *group) Blocks() ([]engine.BlockHandle, error) { return g.blocks, nil }
func (g *group) Groups() ([]engine.GroupNode, error)   { return g.groups, nil }

// blocksOnly has no subgroup capability.
type blocksOnly struct{ blocks []engine.BlockHandle }

func (g blocksOnly) Blocks() ([]engine.BlockHandle, error) { return g.blocks, nil }

// groupsOnly has no block capability.
type groupsOnly struct{ groups []engine.GroupNode }

func (g groupsOnly) Groups() ([]engine.GroupNode, error) { return g.groups, nil }

// opaque supports neither collection.
type opaque struct{}

// brokenGroup implements both collections but fails when probed.
type brokenGroup struct{}

func (brokenGroup) Blocks() ([]engine.BlockHandle, error) {
	return nil, errors.New("COM object disconnected")
}
func (brokenGroup) Groups() ([]engine.GroupNode, error) { panic("groups read on detached handle") }

func db(name string, number int) block {
	return block{name: name, number: number, tag: "Block"}
}

func names(units []engine.UnitRef) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		out = append(out, u.Name)
	}
	return out
}
