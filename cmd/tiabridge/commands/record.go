package commands

import (
	"context"

	"github.com/google/uuid"

	"github.com/piwi3910/tiabridge/pkg/engine"
	"github.com/piwi3910/tiabridge/pkg/stores"
	"github.com/piwi3910/tiabridge/pkg/telemetry"
)

// recording tracks one inspection written to the history store. A recording
// whose store could not be opened is inert. Store failures are logged and
// never change the outcome of the run.
type recording struct {
	store  *stores.SQLiteStore
	id     string
	logger *telemetry.Logger
}

// startRecording opens the configured history store and creates a running
// inspection for rawPath. It returns an inert recording when no store is
// configured.
func (a *app) startRecording(ctx context.Context, rawPath string, mode engine.Mode) *recording {
	if a.cfg.Store.Path == "" {
		return &recording{}
	}

	runID := uuid.NewString()
	logger := a.logger.WithRunID(runID).WithField("store", a.cfg.Store.Path)

	store, err := stores.Open(ctx, a.cfg.Store.Path)
	if err != nil {
		logger.WithError(err).Warn("failed to open history store, inspection will not be recorded")
		return &recording{}
	}

	insp, err := store.CreateInspection(ctx, runID, rawPath, mode)
	if err != nil {
		logger.WithError(err).Warn("failed to record inspection start")
		_ = store.Close()
		return &recording{}
	}

	return &recording{store: store, id: insp.ID, logger: logger.WithField("inspection_id", insp.ID)}
}

// finish stores the listings and the outcome, then closes the store.
func (r *recording) finish(ctx context.Context, result *inspection, err error) {
	if r == nil || r.store == nil {
		return
	}
	defer func() {
		if closeErr := r.store.Close(); closeErr != nil {
			r.logger.WithError(closeErr).Warn("failed to close history store")
		}
	}()

	// The run may have been interrupted; the history is still written.
	ctx = context.WithoutCancel(ctx)

	outcome := stores.InspectionResult{Status: stores.InspectionStatusCompleted, Err: err}
	if err != nil {
		outcome.Status = stores.InspectionStatusFailed
	}
	if result != nil {
		if result.Project != nil {
			outcome.ProjectName = result.Project.Name
		}
		if result.Controller != nil {
			outcome.Controller = result.Controller.Name
		}
		for _, l := range result.Listings {
			if addErr := r.store.AddUnits(ctx, r.id, l.Service.Category(), l.Units); addErr != nil {
				r.logger.WithError(addErr).Warnf("failed to record %s listing", l.Service.Category().Label())
			}
		}
	}

	if completeErr := r.store.CompleteInspection(ctx, r.id, outcome); completeErr != nil {
		r.logger.WithError(completeErr).Warn("failed to record inspection outcome")
		return
	}
	r.logger.WithField("status", string(outcome.Status)).Debug("inspection recorded")
}
