// Package fixture is an engineering environment driver backed by a YAML
// document. It reports devices, software and block trees exactly as the
// document describes them and checks only that project files exist, which
// makes it suitable for dry runs and tests without a vendor installation.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/tiabridge/pkg/engine"
	"github.com/piwi3910/tiabridge/pkg/environments"
	"github.com/piwi3910/tiabridge/pkg/telemetry"
)

// DriverName is the registry name of the fixture driver.
const DriverName = "fixture"

// Factory builds a fixture environment from cfg.Fixture.
func Factory(cfg environments.DriverConfig) (engine.Environment, error) {
	if cfg.Fixture == "" {
		return nil, fmt.Errorf("the %s driver needs a fixture file (--fixture)", DriverName)
	}
	doc, err := Load(cfg.Fixture)
	if err != nil {
		return nil, err
	}
	return New(doc, cfg.Logger), nil
}

// Environment serves sessions from a Document.
type Environment struct {
	doc    *Document
	logger *telemetry.Logger
}

// New creates an environment for doc.
func New(doc *Document, logger *telemetry.Logger) *Environment {
	if logger == nil {
		logger = telemetry.Nop()
	}
	return &Environment{doc: doc, logger: logger.NewComponentLogger("fixture")}
}

// Start implements engine.Environment.
func (e *Environment) Start(_ context.Context, mode engine.Mode) (engine.Session, error) {
	if e.doc.StartError != "" {
		return nil, errors.New(e.doc.StartError)
	}
	e.logger.Debugf("fixture session started (mode=%s)", mode)
	return &session{env: e}, nil
}

// ProjectPatterns implements engine.Environment.
func (e *Environment) ProjectPatterns() []string {
	return e.doc.Patterns
}

type session struct {
	env    *Environment
	closed bool
}

func (s *session) OpenProject(_ context.Context, path string) (engine.Project, error) {
	if s.closed {
		return nil, errors.New("session is closed")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open project file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("project path %s is not a file", path)
	}

	spec, ok := s.env.doc.Projects[filepath.Base(path)]
	if !ok {
		return nil, fmt.Errorf("project %s is not described by the fixture", filepath.Base(path))
	}

	if spec.OpenError != nil {
		return nil, spec.OpenError.err()
	}

	canonical, err := filepath.Abs(path)
	if err != nil {
		canonical = path
	}

	name := spec.Name
	if name == "" {
		name = trimExt(filepath.Base(path))
	}

	return &project{spec: spec, name: name, path: canonical}, nil
}

func (s *session) Close() error {
	s.closed = true
	if s.env.doc.CloseError != "" {
		return errors.New(s.env.doc.CloseError)
	}
	return nil
}

func (o *OpenError) err() error {
	msg := o.Message
	switch o.Kind {
	case "locked":
		if msg == "" {
			return engine.ErrProjectLocked
		}
		return fmt.Errorf("%s: %w", msg, engine.ErrProjectLocked)
	case "version":
		if msg == "" {
			return engine.ErrVersionMismatch
		}
		return fmt.Errorf("%s: %w", msg, engine.ErrVersionMismatch)
	case "engineering":
		if msg == "" {
			msg = "the engineering environment rejected the project"
		}
		return engine.NewEngineeringError(msg, nil)
	default:
		if msg == "" {
			msg = "project could not be opened"
		}
		return errors.New(msg)
	}
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

type project struct {
	spec ProjectSpec
	name string
	path string
}

func (p *project) Name() string { return p.name }

func (p *project) Path() string { return p.path }

func (p *project) Devices() ([]engine.Device, error) {
	if p.spec.DevicesError != "" {
		return nil, errors.New(p.spec.DevicesError)
	}
	devices := make([]engine.Device, 0, len(p.spec.Devices))
	for _, d := range p.spec.Devices {
		devices = append(devices, device{spec: d})
	}
	return devices, nil
}

type device struct{ spec DeviceSpec }

func (d device) Name() string { return d.spec.Name }

func (d device) Items() ([]engine.DeviceItem, error) {
	if d.spec.ItemsError != "" {
		return nil, errors.New(d.spec.ItemsError)
	}
	items := make([]engine.DeviceItem, 0, len(d.spec.Items))
	for _, it := range d.spec.Items {
		items = append(items, item{spec: it})
	}
	return items, nil
}

type item struct{ spec ItemSpec }

func (i item) Name() string { return i.spec.Name }

func (i item) SoftwareContainer() (engine.SoftwareContainer, bool) {
	if i.spec.Software == nil {
		return nil, false
	}
	return container{spec: i.spec.Software}, true
}

type container struct{ spec *SoftwareSpec }

// Software narrows the described software to its kind.
func (c container) Software() (engine.Software, error) {
	if c.spec.Error != "" {
		return engine.Software{}, errors.New(c.spec.Error)
	}

	sw := engine.Software{Name: c.spec.Name}
	switch c.spec.Kind {
	case "controller":
		sw.Kind = engine.SoftwareKindController
		program := &engine.ControllerProgram{Name: c.spec.Name}
		if c.spec.Program != nil {
			program.Root = &group{spec: c.spec.Program}
		}
		sw.Controller = program
	case "hmi":
		sw.Kind = engine.SoftwareKindHMI
	default:
		sw.Kind = engine.SoftwareKindUnknown
	}
	return sw, nil
}

// group implements engine.BlockLister and engine.GroupLister and reports
// ErrCapabilityAbsent for collections the document omits.
type group struct{ spec *GroupSpec }

func (g *group) Blocks() ([]engine.BlockHandle, error) {
	if g.spec.BlocksError != "" {
		return nil, errors.New(g.spec.BlocksError)
	}
	if g.spec.Blocks == nil {
		return nil, engine.ErrCapabilityAbsent
	}
	specs := *g.spec.Blocks
	blocks := make([]engine.BlockHandle, 0, len(specs))
	for i := range specs {
		blocks = append(blocks, block{spec: &specs[i]})
	}
	return blocks, nil
}

func (g *group) Groups() ([]engine.GroupNode, error) {
	if g.spec.GroupsError != "" {
		return nil, errors.New(g.spec.GroupsError)
	}
	if g.spec.Groups == nil {
		return nil, engine.ErrCapabilityAbsent
	}
	specs := *g.spec.Groups
	groups := make([]engine.GroupNode, 0, len(specs))
	for i := range specs {
		groups = append(groups, &group{spec: &specs[i]})
	}
	return groups, nil
}

type block struct{ spec *BlockSpec }

func (b block) TypeTag() string { return b.spec.Type }

func (b block) Name() (string, error) {
	if b.spec.Name == nil {
		return "", engine.ErrCapabilityAbsent
	}
	return *b.spec.Name, nil
}

func (b block) Number() (int, error) {
	if b.spec.Number == nil {
		return 0, engine.ErrCapabilityAbsent
	}
	return *b.spec.Number, nil
}
