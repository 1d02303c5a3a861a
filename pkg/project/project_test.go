package project

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/tiabridge/pkg/engine"
)

type fakeProject struct {
	name       string
	path       string
	devices    []engine.Device
	devicesErr error
}

func (p *fakeProject) Name() string                      { return p.name }
func (p *fakeProject) Path() string                      { return p.path }
func (p *fakeProject) Devices() ([]engine.Device, error) { return p.devices, p.devicesErr }

type fakeSession struct {
	project engine.Project
	err     error
	opened  []string
}

func (s *fakeSession) OpenProject(_ context.Context, path string) (engine.Project, error) {
	s.opened = append(s.opened, path)
	if s.err != nil {
		return nil, s.err
	}
	return s.project, nil
}

func (s *fakeSession) Close() error { return nil }

type fakeDevice struct {
	name     string
	items    []engine.DeviceItem
	itemsErr error
}

func (d fakeDevice) Name() string                        { return d.name }
func (d fakeDevice) Items() ([]engine.DeviceItem, error) { return d.items, d.itemsErr }

type fakeItem struct {
	name      string
	container engine.SoftwareContainer
}

func (i fakeItem) Name() string { return i.name }

func (i fakeItem) SoftwareContainer() (engine.SoftwareContainer, bool) {
	return i.container, i.container != nil
}

type fakeContainer struct {
	sw  engine.Software
	err error
}

func (c fakeContainer) Software() (engine.Software, error) { return c.sw, c.err }

func controllerItem(name, program string) fakeItem {
	return fakeItem{name: name, container: fakeContainer{sw: engine.Software{
		Kind:       engine.SoftwareKindController,
		Name:       program,
		Controller: &engine.ControllerProgram{Name: program},
	}}}
}

func TestOpen(t *testing.T) {
	sess := &fakeSession{project: &fakeProject{name: "Line4", path: `C:\Projects\Line4\Line4.ap17`}}

	p, err := NewOpener(nil).Open(context.Background(), sess, "Line4.ap17")
	require.NoError(t, err)
	assert.Equal(t, "Line4", p.Name)
	assert.Equal(t, `C:\Projects\Line4\Line4.ap17`, p.CanonicalPath)
	assert.Same(t, sess.project, p.Handle)
	assert.Equal(t, []string{"Line4.ap17"}, sess.opened)
}

func TestOpenKeepsInputPathWhenEnvironmentReportsNone(t *testing.T) {
	sess := &fakeSession{project: &fakeProject{name: "Line4"}}

	p, err := NewOpener(nil).Open(context.Background(), sess, "Line4.ap17")
	require.NoError(t, err)
	assert.Equal(t, "Line4.ap17", p.CanonicalPath)
}

func TestOpenClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		sess      engine.Session
		wantClass engine.ErrorClass
		wantCode  string
	}{
		{
			name:      "locked",
			sess:      &fakeSession{err: fmt.Errorf("open Line4: %w", engine.ErrProjectLocked)},
			wantClass: engine.ErrorClassEngineering,
			wantCode:  engine.ErrCodeLocked,
		},
		{
			name:      "version mismatch",
			sess:      &fakeSession{err: engine.ErrVersionMismatch},
			wantClass: engine.ErrorClassEngineering,
			wantCode:  engine.ErrCodeVersion,
		},
		{
			name:      "driver engineering error",
			sess:      &fakeSession{err: engine.NewEngineeringError("upgrade required", nil)},
			wantClass: engine.ErrorClassEngineering,
		},
		{
			name:      "io failure",
			sess:      &fakeSession{err: errors.New("access denied")},
			wantClass: engine.ErrorClassOther,
		},
		{
			name:      "no project returned",
			sess:      &fakeSession{},
			wantClass: engine.ErrorClassOther,
		},
		{
			name:      "no session",
			sess:      nil,
			wantClass: engine.ErrorClassOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOpener(nil).Open(context.Background(), tt.sess, "Line4.ap17")
			require.Error(t, err)
			assert.Equal(t, tt.wantClass, engine.ClassOf(err))
			assert.Equal(t, engine.ExitProjectOpenFailed, engine.ExitCode(err))

			var e *engine.EngineError
			require.ErrorAs(t, err, &e)
			assert.Equal(t, "Line4.ap17", e.Path)
			assert.Equal(t, tt.wantCode, e.Code)
		})
	}
}

func TestFindController(t *testing.T) {
	hmi := fakeItem{name: "HMI_1", container: fakeContainer{sw: engine.Software{Kind: engine.SoftwareKindHMI, Name: "HMI_RT"}}}
	broken := fakeItem{name: "CP_1", container: fakeContainer{err: errors.New("not readable")}}
	rack := fakeItem{name: "Rack_0"}

	p := &Project{CanonicalPath: "Line4.ap17", Handle: &fakeProject{devices: []engine.Device{
		fakeDevice{name: "Panel", items: []engine.DeviceItem{hmi}},
		fakeDevice{name: "PLC_1", items: []engine.DeviceItem{rack, broken, controllerItem("CPU", "PLC_1"), controllerItem("CPU2", "PLC_2")}},
	}}}

	program, err := NewOpener(nil).FindController(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "PLC_1", program.Name)
}

func TestFindControllerNone(t *testing.T) {
	tests := []struct {
		name    string
		project *Project
	}{
		{name: "no devices", project: &Project{Handle: &fakeProject{}}},
		{name: "hmi only", project: &Project{Handle: &fakeProject{devices: []engine.Device{
			fakeDevice{name: "Panel", items: []engine.DeviceItem{
				fakeItem{name: "HMI_1", container: fakeContainer{sw: engine.Software{Kind: engine.SoftwareKindHMI}}},
			}},
		}}}},
		{name: "controller kind without program", project: &Project{Handle: &fakeProject{devices: []engine.Device{
			fakeDevice{name: "PLC", items: []engine.DeviceItem{
				fakeItem{name: "CPU", container: fakeContainer{sw: engine.Software{Kind: engine.SoftwareKindController}}},
			}},
		}}}},
		{name: "nil project", project: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOpener(nil).FindController(context.Background(), tt.project)
			assert.True(t, engine.IsNoController(err))
			assert.Equal(t, engine.ExitNoController, engine.ExitCode(err))
		})
	}
}

func TestFindControllerDeviceFailure(t *testing.T) {
	p := &Project{Handle: &fakeProject{devicesErr: errors.New("COM object disconnected")}}

	_, err := NewOpener(nil).FindController(context.Background(), p)
	assert.Equal(t, engine.ErrorClassOther, engine.ClassOf(err))
}

func TestFindControllerItemsFailure(t *testing.T) {
	disconnected := errors.New("COM object disconnected")
	p := &Project{CanonicalPath: "Line4.ap17", Handle: &fakeProject{devices: []engine.Device{
		fakeDevice{name: "PLC_1", itemsErr: disconnected},
		fakeDevice{name: "PLC_2", items: []engine.DeviceItem{controllerItem("CPU", "PLC_2")}},
	}}}

	_, err := NewOpener(nil).FindController(context.Background(), p)
	require.Error(t, err)
	assert.Equal(t, engine.ErrorClassOther, engine.ClassOf(err))
	assert.Equal(t, engine.ExitProjectOpenFailed, engine.ExitCode(err))
	assert.ErrorIs(t, err, disconnected)
	assert.Contains(t, err.Error(), "PLC_1")
}
