package engine

import "context"

// Environment starts sessions of an engineering environment.
// Implementations are vendor drivers; see pkg/environments.
type Environment interface {
	// Start launches or attaches to an environment instance.
	// It may block for an unbounded time.
	Start(ctx context.Context, mode Mode) (Session, error)

	// ProjectPatterns returns the glob patterns of project files this
	// environment can open, matched against directory entry names.
	ProjectPatterns() []string
}

// Session is a running engineering environment instance.
type Session interface {
	// OpenProject opens the project file at path.
	// Driver failures such as a locked project or a version mismatch should
	// wrap ErrProjectLocked or ErrVersionMismatch.
	OpenProject(ctx context.Context, path string) (Project, error)

	// Close shuts the instance down, closing any project it opened.
	Close() error
}

// Project is an opened engineering project.
type Project interface {
	// Name is the project name reported by the environment.
	Name() string

	// Path is the canonical path of the opened project.
	Path() string

	// Devices enumerates the devices of the project.
	Devices() ([]Device, error)
}

// Device is a hardware device configured in a project.
type Device interface {
	Name() string

	// Items enumerates the device items (modules, CPUs, ...) of the device.
	Items() ([]DeviceItem, error)
}

// DeviceItem is an element of a device.
type DeviceItem interface {
	Name() string

	// SoftwareContainer returns the item's software container service,
	// or false when the item does not host software.
	SoftwareContainer() (SoftwareContainer, bool)
}

// SoftwareContainer exposes the software hosted on a device item.
type SoftwareContainer interface {
	// Software returns the hosted software, already narrowed to its kind.
	Software() (Software, error)
}

// GroupNode is a container of the block hierarchy. A node may expose direct
// blocks (BlockLister), child groups (GroupLister), both or neither; the
// shape is discovered by probing.
type GroupNode interface{}

// BlockLister is the capability of a node that holds blocks directly.
type BlockLister interface {
	Blocks() ([]BlockHandle, error)
}

// GroupLister is the capability of a node that holds child groups.
type GroupLister interface {
	Groups() ([]GroupNode, error)
}

// BlockHandle is a block reported by the environment.
type BlockHandle interface {
	// TypeTag is the environment's native type name for the block.
	TypeTag() string
}

// Named is the capability of a block that reports its name.
type Named interface {
	Name() (string, error)
}

// Numbered is the capability of a block that reports its number.
type Numbered interface {
	Number() (int, error)
}
