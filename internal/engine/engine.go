// Package engine implements the decision engine: a pure function of
// system state, plant profile, irrigation policy, and a per-tick
// context that returns an IrrigationDecision. It is grounded on
// original_source/decision_engine/irrigation_logic.py's ordered rule
// list, reconciled against spec.md §4.5 (the authoritative ordering).
// Nothing here touches the clock, a channel, or the HAL — every input
// is a parameter, which is what makes the safety properties of
// SPEC_FULL.md §8 testable as plain table-driven tests.
package engine

import (
	"time"

	"github.com/irriga/controller/internal/config"
	"github.com/irriga/controller/internal/model"
)

// DecisionContext is the per-tick derived context the rules consult
// beyond the raw sensor snapshot.
type DecisionContext struct {
	Now                time.Time
	LastIrrigationAt   *time.Time
	TodayIrrigationSec int
	OfflineMode        bool

	// Trigger and ManualOptions carry the manual-override bits of
	// SPEC_FULL.md §4.9/§9: rules 1-3 always apply; a manual request
	// with OverrideSoil set bypasses rule 4 (cooldown), the forecast
	// advisory, and the whole soil gate (rules 8-11).
	Trigger      model.Trigger
	OverrideSoil bool

	// ForecastRain is the optional forecast advisory of SPEC_FULL.md
	// §9. Nil (no opinion) unless a forecast source is wired in by the
	// caller; it is consulted after rules 1-7 and before the soil rules
	// (8-11), so it can never override a safety interlock.
	ForecastRain *bool
}

// Evaluate runs the ordered rule set of SPEC_FULL.md §4.5 against
// snapshot, profile, settings and ctx. The first matching rule wins.
func Evaluate(snapshot model.Snapshot, profile config.PlantProfile, settings config.IrrigationSettings, ctx DecisionContext) model.Decision {
	manual := ctx.Trigger == model.TriggerManual

	// Rule 1: rain lock applies to every trigger, manual included
	// (SPEC_FULL.md §9 Open Question 2, resolved safety-first).
	if settings.RainLock && snapshot.IsRaining() {
		return model.Skip(model.ReasonRainDetected)
	}

	// Rule 2: missing water-level data is treated as LowWater,
	// fail-safe (spec.md §4.5).
	if snapshot.Water == nil || snapshot.Water.Percent < float64(settings.MinWaterLevelPct) {
		return model.Skip(model.ReasonLowWater)
	}

	// Rule 3: daily quota, evaluated before adding this run's duration.
	if ctx.TodayIrrigationSec >= settings.DailyQuotaSec {
		return model.Skip(model.ReasonDailyLimit)
	}

	// Rule 4: cooldown. Manual requests may bypass this only when
	// OverrideSoil is requested — the spec ties the single manual
	// bypass bit to both the cooldown and the soil gate (spec.md
	// §4.9).
	if ctx.LastIrrigationAt != nil {
		elapsed := ctx.Now.Sub(*ctx.LastIrrigationAt)
		if elapsed < time.Duration(settings.MinIntervalSec)*time.Second {
			if !(manual && ctx.OverrideSoil) {
				return model.Skip(model.ReasonMinInterval)
			}
		}
	}

	// Rules 5-7: missing air-climate fields must not block irrigation
	// (spec.md §4.5) — only evaluated when an air reading is present.
	if snapshot.Air != nil {
		if snapshot.Air.TemperatureC < float64(settings.MinTempC) {
			return model.Skip(model.ReasonTempTooLow)
		}
		if snapshot.Air.TemperatureC > float64(settings.MaxTempC) {
			return model.Skip(model.ReasonTempTooHigh)
		}
		if snapshot.Air.HumidityPct > float64(settings.MaxAirHumidityPct) {
			return model.Skip(model.ReasonAirTooHumid)
		}
	}

	// Optional forecast advisory (SPEC_FULL.md §9), consulted after
	// the hard interlocks and before the soil rules.
	if ctx.ForecastRain != nil && *ctx.ForecastRain && !(manual && ctx.OverrideSoil) {
		return model.Skip(model.ReasonForecastRain)
	}

	// A manual request with override_soil bypasses the soil gate
	// entirely (rules 8-11): it forces irrigation regardless of the
	// current moisture reading (spec.md §4.9, end-to-end scenario 6).
	if manual && ctx.OverrideSoil {
		return manualIrrigate(settings)
	}

	// Rule 8: no soil data.
	if snapshot.Soil == nil {
		return model.Skip(model.ReasonNoSoilData)
	}

	// Rule 9: already at/above optimal.
	if snapshot.Soil.Percent >= profile.OptimalMoisturePct {
		return model.Skip(model.ReasonSoilOk)
	}

	// Rule 10: below the minimum — irrigate.
	if snapshot.Soil.Percent < profile.MinMoisturePct {
		reason := model.ReasonSoilTooDry
		if manual {
			reason = model.ReasonManual
		}
		return model.Irrigate(settings.DurationSec, reason)
	}

	// Rule 11: between min and optimal.
	return model.Skip(model.ReasonWaiting)
}

func manualIrrigate(settings config.IrrigationSettings) model.Decision {
	return model.Irrigate(settings.DurationSec, model.ReasonManual)
}
