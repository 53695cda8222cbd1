package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/irriga/controller/internal/actuators"
	"github.com/irriga/controller/internal/model"
)

// statusFor maps a skip reason to the status/warning-or-error text of
// spec.md §4.6 step 5. Reasons that never appear in a Skip decision
// (MANUAL) are not present here.
var statusFor = map[model.ReasonCode]model.Status{
	model.ReasonRainDetected: model.StatusRaining,
	model.ReasonLowWater:     model.StatusNoWater,
	model.ReasonDailyLimit:   model.StatusIdle,
	model.ReasonMinInterval:  model.StatusIdle,
	model.ReasonTempTooLow:   model.StatusWarning,
	model.ReasonTempTooHigh:  model.StatusWarning,
	model.ReasonAirTooHumid:  model.StatusWarning,
	model.ReasonNoSoilData:   model.StatusWarning,
	model.ReasonSoilOk:       model.StatusIdle,
	model.ReasonWaiting:      model.StatusIdle,
	model.ReasonForecastRain: model.StatusWarning,
}

// applyLocked actuates decision and records its outcome. The caller
// must hold actionMu.
func (c *Controller) applyLocked(ctx context.Context, decision model.Decision, trigger model.Trigger, now time.Time) (model.Outcome, error) {
	c.refreshSoilLED(c.state.SnapshotAt(now))

	if !decision.IsIrrigate {
		status, ok := statusFor[decision.Reason]
		if !ok {
			status = model.StatusIdle
		}
		msg := ""
		if status == model.StatusWarning {
			msg = string(decision.Reason)
		}
		c.state.SetStatus(status, "", msg)
		// Red is solid exactly while the tank is low.
		if err := c.leds.Set(actuators.Red, decision.Reason == model.ReasonLowWater); err != nil {
			c.log.Warn().Err(err).Msg("failed to update low-water LED")
		}
		if decision.Reason == model.ReasonLowWater {
			c.raiseAlert(ctx, model.Alert{Timestamp: now, Kind: model.AlertLowWater, Message: "water level below threshold"})
		}
		return "", nil
	}

	return c.runIrrigation(ctx, decision, trigger, now)
}

func (c *Controller) runIrrigation(ctx context.Context, decision model.Decision, trigger model.Trigger, now time.Time) (model.Outcome, error) {
	c.state.SetStatus(model.StatusIrrigating, "", "")
	c.state.SetActuator("pump", true)
	if err := c.leds.Blink(actuators.Yellow, yellowBlinkInterval); err != nil {
		c.log.Warn().Err(err).Msg("failed to start yellow blink")
	}

	// Cancelling ctx (the shutdown token) preempts the run via Pump.Stop,
	// so the loop observes shutdown without waiting out the duration.
	stopOnCancel := context.AfterFunc(ctx, func() { _, _, _ = c.pump.Stop() })
	elapsed, startErr := c.pump.Start(time.Duration(decision.DurationSec) * time.Second)
	stopOnCancel()
	c.state.SetActuator("pump", false)
	// endedAt is when the pump actually stopped, not when the tick
	// began: last_irrigation_at must reflect completion (spec.md §8
	// scenario 1's t_end), not the moment the decision was made.
	endedAt := now.Add(elapsed)

	outcome := model.OutcomeSuccess
	if startErr != nil {
		outcome = model.OutcomeFailure
	}

	// Record the actual elapsed run time, not the requested duration:
	// a ManualStop or the shutdown token may have preempted this run
	// short, and the daily quota must only ever be charged for water
	// actually dispensed (spec.md §5, §8).
	ev := model.IrrigationEvent{
		Timestamp:   endedAt,
		DurationSec: int(elapsed.Round(time.Second).Seconds()),
		Reason:      decision.Reason,
		Trigger:     trigger,
		Outcome:     outcome,
	}
	if err := c.st.AppendIrrigationEvent(context.WithoutCancel(ctx), ev); err != nil {
		c.log.Error().Err(err).Msg("failed to persist irrigation event")
	}
	c.bus.EmitIrrigation(ev)

	if startErr != nil {
		c.raiseAlert(ctx, model.Alert{
			Timestamp: endedAt,
			Kind:      model.AlertPumpFailure,
			Message:   fmt.Sprintf("pump failed to run: %s", startErr),
		})
		c.state.SetStatus(model.StatusError, startErr.Error(), "")
		if err := c.leds.Blink(actuators.Red, redBlinkInterval); err != nil {
			c.log.Warn().Err(err).Msg("failed to start red blink")
		}
		return outcome, startErr
	}

	c.state.SetStatus(model.StatusIdle, "", "")
	c.refreshSoilLED(c.state.SnapshotAt(endedAt))
	return outcome, nil
}

// refreshSoilLED keeps the green LED a continuous reflection of the
// latest soil reading, independent of which branch of the rule set
// ran this tick (spec.md §4.6 step 5: "no dedicated LED change beyond
// green reflecting soil" for the RAINING branch).
func (c *Controller) refreshSoilLED(snapshot model.Snapshot) {
	ok := snapshot.Soil != nil && snapshot.Soil.Percent >= c.profile.OptimalMoisturePct
	if err := c.leds.Set(actuators.Green, ok); err != nil {
		c.log.Warn().Err(err).Msg("failed to update soil LED")
	}
}
