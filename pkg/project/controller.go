package project

import (
	"context"
	"fmt"

	"github.com/piwi3910/tiabridge/pkg/engine"
	"github.com/piwi3910/tiabridge/pkg/telemetry"
)

// FindController returns the first controller program hosted by any device
// item of p, scanning devices and their items in reported order.
//
// Items that host no software, or whose software cannot be read, are skipped.
// A device whose items cannot be enumerated fails the search with
// ErrorClassOther. A project without a controller program yields
// ErrorClassNoController.
func (o *Opener) FindController(ctx context.Context, p *Project) (*engine.ControllerProgram, error) {
	if p == nil || p.Handle == nil {
		return nil, engine.NewNoControllerError("no project is open").WithOperation("project.find_controller")
	}

	_, span := o.tel.Tracer.StartProjectSpan(ctx, "find_controller", p.CanonicalPath)
	defer span.End()

	logger := o.logger.WithProject(p.CanonicalPath)

	devices, err := p.Handle.Devices()
	if err != nil {
		e := engine.NewOtherError("failed to enumerate project devices", err).
			WithPath(p.CanonicalPath).
			WithOperation("project.find_controller")
		telemetry.RecordError(span, e)
		logger.WithError(e).Error("failed to enumerate project devices")
		return nil, e
	}

	for _, device := range devices {
		if device == nil {
			continue
		}
		items, err := device.Items()
		if err != nil {
			e := engine.NewOtherError(fmt.Sprintf("failed to enumerate items of device %s", device.Name()), err).
				WithPath(p.CanonicalPath).
				WithOperation("project.find_controller")
			telemetry.RecordError(span, e)
			logger.WithError(e).Error("failed to enumerate device items")
			return nil, e
		}
		for _, item := range items {
			if program, ok := controllerOf(logger, item); ok {
				span.SetAttributes(telemetry.AttrController.String(program.Name))
				telemetry.RecordSuccess(span)
				logger.WithFields(map[string]interface{}{
					"device":     device.Name(),
					"item":       item.Name(),
					"controller": program.Name,
				}).Info("controller program found")
				return program, nil
			}
		}
	}

	e := engine.NewNoControllerError("no controller program found in project").
		WithPath(p.CanonicalPath).
		WithOperation("project.find_controller")
	telemetry.RecordError(span, e)
	logger.Error("no controller program found in project")
	return nil, e
}

func controllerOf(logger *telemetry.Logger, item engine.DeviceItem) (*engine.ControllerProgram, bool) {
	if item == nil {
		return nil, false
	}
	container, ok := item.SoftwareContainer()
	if !ok || container == nil {
		return nil, false
	}
	sw, err := container.Software()
	if err != nil {
		logger.WithError(err).WithField("item", item.Name()).Debug("skipping item whose software cannot be read")
		return nil, false
	}
	program, ok := sw.AsController()
	if !ok {
		logger.Debugf("item %s hosts %s software, not a controller program", item.Name(), sw.Kind)
	}
	return program, ok
}
