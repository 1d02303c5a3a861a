// Package session owns the lifetime of an engineering environment session.
package session

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/piwi3910/tiabridge/pkg/engine"
	"github.com/piwi3910/tiabridge/pkg/telemetry"
)

// State is the lifecycle state of a Handle.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Handle owns one engineering environment session.
//
//	Uninitialized --Open ok--> Active --Release--> Closed
//	Uninitialized --Open failed--> Uninitialized
//	Closed --Release--> Closed
//
// Release always ends in Closed, whether or not closing the session failed.
// A Handle is not safe for concurrent use.
type Handle struct {
	env     engine.Environment
	tel     *telemetry.Telemetry
	logger  *telemetry.Logger
	session engine.Session
	state   State
	mode    engine.Mode
	ctx     context.Context
}

// NewHandle creates an uninitialized handle for env.
func NewHandle(env engine.Environment, tel *telemetry.Telemetry) *Handle {
	if tel == nil {
		tel = telemetry.Discard()
	}
	return &Handle{
		env:    env,
		tel:    tel,
		logger: tel.Logger.NewComponentLogger("session"),
		state:  StateUninitialized,
	}
}

// Open starts the environment in mode. Every failure, including a handle
// that was already opened or an unknown mode, is classified as a session
// start failure. On failure an uninitialized handle stays uninitialized.
func (h *Handle) Open(ctx context.Context, mode engine.Mode) error {
	if h.state != StateUninitialized {
		return engine.NewSessionStartError(fmt.Sprintf("cannot open a %s session handle", h.state), nil).
			WithOperation("session.open")
	}
	if err := mode.Validate(); err != nil {
		return engine.NewSessionStartError("cannot start engineering environment", err).
			WithOperation("session.open")
	}

	ctx, span := h.tel.Tracer.StartSessionSpan(ctx, "open", string(mode))
	defer span.End()

	h.logger.Debugf("starting engineering environment (mode=%s)", mode)

	if h.env == nil {
		err := engine.NewSessionStartError("no engineering environment configured", nil).WithOperation("session.open")
		h.fail(span, mode, err)
		return err
	}

	sess, err := h.env.Start(ctx, mode)
	if err == nil && sess == nil {
		err = fmt.Errorf("environment returned no session")
	}
	if err != nil {
		startErr := engine.NewSessionStartError("failed to start engineering environment", err).WithOperation("session.open")
		h.fail(span, mode, startErr)
		return startErr
	}

	h.session = sess
	h.mode = mode
	h.ctx = ctx
	h.state = StateActive

	h.tel.Metrics.RecordSession(string(mode), "ok")
	telemetry.RecordSuccess(span)
	h.logger.Infof("engineering environment started (mode=%s)", mode)
	return nil
}

func (h *Handle) fail(span trace.Span, mode engine.Mode, err error) {
	h.tel.Metrics.RecordSession(string(mode), "error")
	telemetry.RecordError(span, err)
	h.logger.WithError(err).Error("failed to start engineering environment")
}

// Release closes the session. It is idempotent and never fails: close errors
// and panics are logged and swallowed. Releasing a handle that was never
// opened does nothing.
func (h *Handle) Release() {
	if h.state != StateActive {
		return
	}

	// Closed first: a failing Close must not leave the handle releasable.
	h.state = StateClosed
	sess := h.session
	h.session = nil

	ctx := h.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	_, span := h.tel.Tracer.StartSessionSpan(ctx, "release", string(h.mode))
	defer span.End()

	h.logger.Debug("closing engineering environment session")

	if err := closeSession(sess); err != nil {
		h.tel.Metrics.RecordSessionRelease("error")
		telemetry.RecordError(span, err)
		h.logger.WithError(err).Warn("closing the engineering environment failed; continuing")
		return
	}

	h.tel.Metrics.RecordSessionRelease("ok")
	telemetry.RecordSuccess(span)
	h.logger.Info("engineering environment session closed")
}

func closeSession(sess engine.Session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session close panicked: %v", r)
		}
	}()
	return sess.Close()
}

// Session returns the active session, or nil when the handle is not active.
func (h *Handle) Session() engine.Session {
	if h.state != StateActive {
		return nil
	}
	return h.session
}

// State returns the lifecycle state.
func (h *Handle) State() State {
	return h.state
}

// Mode returns the mode the session was opened in.
func (h *Handle) Mode() engine.Mode {
	return h.mode
}

// Run opens h in mode, calls fn with the session and releases the session on
// every exit path of fn: normal return, error and panic. A panic in fn is
// re-raised after the release. The error of fn is returned unchanged.
func Run(ctx context.Context, h *Handle, mode engine.Mode, fn func(ctx context.Context, sess engine.Session) error) error {
	if err := h.Open(ctx, mode); err != nil {
		return err
	}
	defer h.Release()

	return fn(ctx, h.Session())
}
