package commands

import (
	"context"

	"github.com/piwi3910/tiabridge/pkg/blocks"
	"github.com/piwi3910/tiabridge/pkg/engine"
	"github.com/piwi3910/tiabridge/pkg/project"
	"github.com/piwi3910/tiabridge/pkg/session"
)

// inspection is what one run found in a project.
type inspection struct {
	Project    *project.Project
	Controller *engine.ControllerProgram
	Listings   []listing
}

// listing is the output of one listing service.
type listing struct {
	Service *blocks.ListingService
	Units   []engine.UnitRef
}

// inspectHooks observe an inspection while its session is active. A hook
// returning an error ends the inspection with that error.
type inspectHooks struct {
	opened     func(p *project.Project)
	controller func(c *engine.ControllerProgram)
	listed     func(result *inspection) error
}

// inspect resolves rawPath, opens the project in a session started in mode,
// locates the controller program and runs the DB and FB listings over it.
// The session is released before inspect returns, whatever the outcome.
func (a *app) inspect(ctx context.Context, mode engine.Mode, rawPath string, hooks inspectHooks) (*inspection, error) {
	env, err := a.environment()
	if err != nil {
		return nil, err
	}

	path, err := a.locator(env).Resolve(rawPath)
	if err != nil {
		return nil, err
	}

	classifier, err := a.classifier()
	if err != nil {
		return nil, err
	}
	services := []*blocks.ListingService{
		blocks.DataUnitListing(blocks.WithClassifier(classifier), blocks.WithTelemetry(a.tel)),
		blocks.FunctionUnitListing(blocks.WithClassifier(classifier), blocks.WithTelemetry(a.tel)),
	}

	opener := project.NewOpener(a.tel)
	result := &inspection{}

	h := session.NewHandle(env, a.tel)
	err = session.Run(ctx, h, mode, func(ctx context.Context, sess engine.Session) error {
		p, err := opener.Open(ctx, sess, path)
		if err != nil {
			return err
		}
		result.Project = p
		if hooks.opened != nil {
			hooks.opened(p)
		}

		controller, err := opener.FindController(ctx, p)
		if err != nil {
			return err
		}
		result.Controller = controller
		if hooks.controller != nil {
			hooks.controller(controller)
		}

		for _, svc := range services {
			result.Listings = append(result.Listings, listing{
				Service: svc,
				Units:   svc.List(ctx, controller.Root),
			})
		}

		if hooks.listed != nil {
			return hooks.listed(result)
		}
		return nil
	})

	return result, err
}
