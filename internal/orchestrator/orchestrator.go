// Package orchestrator runs the purchase controller on a single goroutine.
// Hosts hand it snapshots over a channel and get the tick's effects back;
// the controller itself is never touched from any other goroutine.
package orchestrator

// #region imports
import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/autobuy/internal/controller"
	"github.com/danielpatrickdp/autobuy/internal/logging"
	"github.com/danielpatrickdp/autobuy/internal/prefs"
)

// #endregion

// #region orchestrator-struct

// Orchestrator owns a controller and the bookkeeping for the cycle in flight.
type Orchestrator struct {
	ctrl  *controller.Controller
	prefs prefs.Source
	rec   Recorder
	now   func() time.Time
	newID func() string

	reqs chan request
	done chan struct{}

	// Owned by the Run goroutine.
	cycle   *logging.CycleEntry
	cycleID string
	ticks   uint64
}

// #endregion

// #region constructor

// New creates an orchestrator. Call Run to start serving requests.
func New(cfg controller.Config, src prefs.Source, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ctrl:  controller.New(cfg),
		prefs: src,
		now:   time.Now,
		newID: uuid.NewString,
		reqs:  make(chan request),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// #endregion

// #region run

// Run serves requests until ctx is cancelled. On exit the controller is
// forced idle and an unfinished cycle is recorded as cancelled. Run must
// be called at most once.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.done)
	slog.Info("controller loop started")

	for {
		select {
		case <-ctx.Done():
			o.reset("shutdown")
			slog.Info("controller loop stopped", "ticks", o.ticks)
			return nil
		case req := <-o.reqs:
			req.reply <- o.handle(req)
		}
	}
}

// Done is closed when Run returns.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

func (o *Orchestrator) handle(req request) response {
	switch req.kind {
	case reqTick:
		return response{result: o.tick(req.snap)}
	case reqReset:
		o.reset("reset")
		return response{status: o.status()}
	default:
		return response{status: o.status()}
	}
}

// #endregion

// #region public-api

// Tick delivers one snapshot and returns the effects to apply.
func (o *Orchestrator) Tick(ctx context.Context, snap controller.Snapshot) (Result, error) {
	resp, err := o.call(ctx, request{kind: reqTick, snap: snap})
	return resp.result, err
}

// Reset forces the controller idle, e.g. on disconnect.
func (o *Orchestrator) Reset(ctx context.Context) (Status, error) {
	resp, err := o.call(ctx, request{kind: reqReset})
	return resp.status, err
}

// Status reports the controller state.
func (o *Orchestrator) Status(ctx context.Context) (Status, error) {
	resp, err := o.call(ctx, request{kind: reqStatus})
	return resp.status, err
}

func (o *Orchestrator) call(ctx context.Context, req request) (response, error) {
	req.reply = make(chan response, 1)
	select {
	case o.reqs <- req:
	case <-o.done:
		return response{}, ErrStopped
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp, nil
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

// #endregion

// #region tick

func (o *Orchestrator) tick(snap controller.Snapshot) Result {
	now := o.now()
	enabled, selected := o.prefs.Current()
	before := o.ctrl.State()

	effects := o.ctrl.Tick(controller.Input{
		Now:      now,
		Enabled:  enabled,
		Tier:     selected,
		Snapshot: snap,
	})
	o.ticks++

	for _, e := range effects {
		o.observe(e, now)
	}

	if before != controller.StateIdle && o.ctrl.State() == controller.StateIdle && o.cycle != nil {
		reason := "disabled"
		if snap.Offline {
			reason = "offline"
		}
		o.finish(logging.OutcomeCancelled, reason, now)
	}

	return Result{State: o.ctrl.State(), Effects: effects, CycleID: o.cycleID}
}

func (o *Orchestrator) observe(e controller.Effect, now time.Time) {
	switch e.Kind {
	case controller.EffectTrigger:
		o.cycleID = o.newID()
		o.cycle = &logging.CycleEntry{
			CycleID:     o.cycleID,
			Tier:        string(e.Tier.ID),
			Target:      e.Tier.Target,
			TriggeredAt: now,
		}
		slog.Info("command sent", "cycle", o.cycleID, "tier", e.Tier.Label, "command", e.Command)

	case controller.EffectInteract:
		slog.Info("clicking slot", "cycle", o.cycleID, "slot", e.Target, "handle", e.Handle, "tier", e.Tier.Label)

	case controller.EffectClose:
		slog.Debug("closing menu", "cycle", o.cycleID)

	case controller.EffectNotify:
		switch e.Notice {
		case controller.NoticeSuccess:
			o.finish(logging.OutcomeSuccess, "", now)
		case controller.NoticeTimeout:
			slog.Warn("timed out waiting for menu", "cycle", o.cycleID)
			o.finish(logging.OutcomeTimeout, e.Message, now)
		case controller.NoticeVanished:
			slog.Warn("menu closed before click", "cycle", o.cycleID)
			o.finish(logging.OutcomeVanished, e.Message, now)
		}
	}
}

// #endregion

// #region cycle-bookkeeping

func (o *Orchestrator) reset(reason string) {
	o.ctrl.Reset()
	if o.cycle != nil {
		o.finish(logging.OutcomeCancelled, reason, o.now())
	}
}

func (o *Orchestrator) finish(outcome logging.Outcome, reason string, now time.Time) {
	if o.cycle == nil {
		return
	}
	entry := *o.cycle
	o.cycle = nil

	entry.Outcome = outcome
	entry.Reason = reason
	entry.FinishedAt = now

	if o.rec == nil {
		return
	}
	if err := o.rec.Record(entry); err != nil {
		slog.Error("record cycle failed", "cycle", entry.CycleID, "outcome", string(outcome), "error", err)
	}
}

func (o *Orchestrator) status() Status {
	m := o.ctrl.Machine()
	enabled, selected := o.prefs.Current()
	return Status{
		State:          m.State,
		StateEnteredAt: m.StateEnteredAt,
		LastSuccessAt:  m.LastSuccessAt,
		Enabled:        enabled,
		Tier:           selected,
		CycleID:        o.cycleID,
		CycleOpen:      o.cycle != nil,
		Ticks:          o.ticks,
	}
}

// #endregion
