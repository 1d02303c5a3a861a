package project

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.opentelemetry.io/otel/trace"

	"github.com/piwi3910/tiabridge/pkg/engine"
	"github.com/piwi3910/tiabridge/pkg/telemetry"
)

// Project is an opened engineering project. It is never closed explicitly;
// releasing the session closes it.
type Project struct {
	// Name is the project name reported by the environment.
	Name string

	// CanonicalPath is the path the environment resolved the project to.
	CanonicalPath string

	// Handle is the environment's project object.
	Handle engine.Project
}

// Opener opens projects and locates their controller program.
type Opener struct {
	tel    *telemetry.Telemetry
	logger *telemetry.Logger
}

// NewOpener creates an opener reporting to tel. A nil tel discards.
func NewOpener(tel *telemetry.Telemetry) *Opener {
	if tel == nil {
		tel = telemetry.Discard()
	}
	return &Opener{
		tel:    tel,
		logger: tel.Logger.NewComponentLogger("project"),
	}
}

// Open opens the project file at path in sess.
//
// Failures the environment reports as engineering failures (locked project,
// version mismatch) are classified ErrorClassEngineering; everything else is
// ErrorClassOther. The error is logged before it is returned.
func (o *Opener) Open(ctx context.Context, sess engine.Session, path string) (*Project, error) {
	ctx, span := o.tel.Tracer.StartProjectSpan(ctx, "open", path)
	defer span.End()

	logger := o.logger.WithProject(path)
	logger.Infof("opening project %s", filepath.Base(path))

	if sess == nil {
		err := engine.NewOtherError("no active engineering session", nil).
			WithPath(path).
			WithOperation("project.open")
		o.failOpen(logger, span, err)
		return nil, err
	}

	handle, err := sess.OpenProject(ctx, path)
	if err == nil && handle == nil {
		err = fmt.Errorf("environment returned no project")
	}
	if err != nil {
		classified := classifyOpenError(path, err)
		o.failOpen(logger, span, classified)
		return nil, classified
	}

	p := &Project{
		Name:          handle.Name(),
		CanonicalPath: handle.Path(),
		Handle:        handle,
	}
	if p.CanonicalPath == "" {
		p.CanonicalPath = path
	}

	o.tel.Metrics.RecordProjectOpen("ok")
	span.SetAttributes(telemetry.AttrProjectName.String(p.Name))
	telemetry.RecordSuccess(span)
	logger.WithField("project", p.Name).Info("project opened")

	return p, nil
}

func classifyOpenError(path string, err error) *engine.EngineError {
	if engine.IsEngineering(err) {
		e := engine.NewEngineeringError("the engineering environment rejected the project", err).
			WithPath(path).
			WithOperation("project.open")
		switch {
		case errors.Is(err, engine.ErrProjectLocked):
			e.WithCode(engine.ErrCodeLocked)
		case errors.Is(err, engine.ErrVersionMismatch):
			e.WithCode(engine.ErrCodeVersion)
		}
		return e
	}
	return engine.NewOtherError("failed to open project", err).
		WithPath(path).
		WithOperation("project.open")
}

func (o *Opener) failOpen(logger *telemetry.Logger, span trace.Span, err *engine.EngineError) {
	o.tel.Metrics.RecordProjectOpen(string(err.Class))
	telemetry.RecordError(span, err)
	logger.WithError(err).WithField("class", string(err.Class)).Error("failed to open project")
}
