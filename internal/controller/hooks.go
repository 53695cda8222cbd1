package controller

import (
	"context"
	"time"

	"github.com/irriga/controller/internal/engine"
	"github.com/irriga/controller/internal/events"
	"github.com/irriga/controller/internal/model"
	"github.com/irriga/controller/internal/network"
)

// ManualOptions carries the parameters of a manual trigger request
// (spec.md §4.9/§6). OverrideSoil bypasses the cooldown and the whole
// soil gate; it never bypasses rain_lock or low-water.
type ManualOptions struct {
	OverrideSoil bool
}

// TriggerResult reports what a manual trigger actually did.
type TriggerResult struct {
	Accepted bool
	Reason   model.ReasonCode
	Outcome  model.Outcome
	Err      error
}

// TriggerManual runs one off-cycle evaluate+apply pass with
// Trigger=MANUAL, serialized against the tick loop by actionMu so the
// two paths can never both decide to start the pump at once.
func (c *Controller) TriggerManual(ctx context.Context, opts ManualOptions) TriggerResult {
	now := time.Now()

	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	snapshot := c.state.SnapshotAt(now)
	decisionCtx, err := c.buildContext(ctx, now, model.TriggerManual, opts.OverrideSoil)
	if err != nil {
		return TriggerResult{Accepted: false, Err: err}
	}

	decision := engine.Evaluate(snapshot, c.profile, c.settings, decisionCtx)
	outcome, applyErr := c.applyLocked(ctx, decision, model.TriggerManual, now)

	return TriggerResult{
		Accepted: decision.IsIrrigate,
		Reason:   decision.Reason,
		Outcome:  outcome,
		Err:      applyErr,
	}
}

// StopIrrigation preempts a running pump. The returned bool
// distinguishes {Stopped, NotRunning} per spec.md §6.
func (c *Controller) StopIrrigation() (bool, error) {
	stopped, _, err := c.pump.Stop()
	return stopped, err
}

// StatusReport is the payload of the get_status hook (spec.md §4.9/§6).
type StatusReport struct {
	Snapshot           model.Snapshot
	TodayIrrigationSec int
	LastIrrigation     *model.IrrigationEvent
	Pump               PumpStatus
	Network            network.Info
}

// PumpStatus mirrors actuators.Status without importing the package
// into every hooks.go caller's namespace.
type PumpStatus struct {
	IsRunning    bool
	TotalRunTime time.Duration
	LastStartAt  time.Time
}

// GetStatus assembles the full status report: current snapshot,
// today's irrigation total, the last irrigation event, pump
// bookkeeping and network info.
func (c *Controller) GetStatus(ctx context.Context) (StatusReport, error) {
	now := time.Now()
	snapshot := c.state.SnapshotAt(now)

	todaySec, err := c.st.TodayIrrigationSeconds(ctx, now)
	if err != nil {
		return StatusReport{}, err
	}
	last, err := c.st.LastIrrigation(ctx)
	if err != nil {
		return StatusReport{}, err
	}

	pump := c.pump.GetStatus()
	return StatusReport{
		Snapshot:           snapshot,
		TodayIrrigationSec: todaySec,
		LastIrrigation:     last,
		Pump:               PumpStatus{IsRunning: pump.IsRunning, TotalRunTime: pump.TotalRunTime, LastStartAt: pump.LastStartAt},
		Network:            c.prober.Info(),
	}, nil
}

// SubscribeEvents registers handler on the underlying event bus
// (spec.md §6's subscribe_events hook).
func (c *Controller) SubscribeEvents(handler events.Handler) {
	c.bus.Subscribe(handler)
}
