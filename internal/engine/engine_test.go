package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/irriga/controller/internal/config"
	"github.com/irriga/controller/internal/model"
)

func testProfile() config.PlantProfile {
	return config.PlantProfile{ID: "tomato", MinMoisturePct: 40, OptimalMoisturePct: 60, MaxMoisturePct: 80}
}

func testSettings() config.IrrigationSettings {
	return config.IrrigationSettings{
		CheckIntervalSec:  300,
		DurationSec:       30,
		DailyQuotaSec:     300,
		MinWaterLevelPct:  20,
		MinTempC:          10,
		MaxTempC:          32,
		MaxAirHumidityPct: 85,
		MinIntervalSec:    3600,
		RainLock:          true,
		RetainDays:        7,
	}
}

func reading(kind model.SensorKind, percent float64, detected bool) *model.SensorReading {
	return &model.SensorReading{Kind: kind, Percent: percent, Detected: detected}
}

func baseSnapshot() model.Snapshot {
	return model.Snapshot{
		Water: reading(model.KindWaterLevel, 80, true),
		Soil:  reading(model.KindSoilMoisture, 30, false),
	}
}

func TestEvaluate_RuleOrdering(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		snapshot   model.Snapshot
		ctx        DecisionContext
		wantReason model.ReasonCode
		wantIrr    bool
	}{
		{
			name: "rain lock wins over everything else",
			snapshot: func() model.Snapshot {
				s := baseSnapshot()
				s.Rain = reading(model.KindRain, 0, true)
				return s
			}(),
			ctx:        DecisionContext{Now: now, Trigger: model.TriggerAuto},
			wantReason: model.ReasonRainDetected,
		},
		{
			name: "low water blocks even when soil is dry",
			snapshot: func() model.Snapshot {
				s := baseSnapshot()
				s.Water = reading(model.KindWaterLevel, 5, false)
				return s
			}(),
			ctx:        DecisionContext{Now: now, Trigger: model.TriggerAuto},
			wantReason: model.ReasonLowWater,
		},
		{
			name:     "missing water reading treated as low water",
			snapshot: model.Snapshot{Soil: reading(model.KindSoilMoisture, 10, true)},
			ctx:      DecisionContext{Now: now, Trigger: model.TriggerAuto},
			wantReason: model.ReasonLowWater,
		},
		{
			name:       "daily quota already met",
			snapshot:   baseSnapshot(),
			ctx:        DecisionContext{Now: now, TodayIrrigationSec: 300, Trigger: model.TriggerAuto},
			wantReason: model.ReasonDailyLimit,
		},
		{
			name:     "cooldown still active",
			snapshot: baseSnapshot(),
			ctx: DecisionContext{
				Now:              now,
				LastIrrigationAt: ptrTime(now.Add(-10 * time.Minute)),
				Trigger:          model.TriggerAuto,
			},
			wantReason: model.ReasonMinInterval,
		},
		{
			name: "temp too low blocks irrigation",
			snapshot: func() model.Snapshot {
				s := baseSnapshot()
				s.Air = reading(model.KindAirClimate, 0, false)
				s.Air.TemperatureC = 5
				return s
			}(),
			ctx:        DecisionContext{Now: now, Trigger: model.TriggerAuto},
			wantReason: model.ReasonTempTooLow,
		},
		{
			name: "temp too high blocks irrigation",
			snapshot: func() model.Snapshot {
				s := baseSnapshot()
				s.Air = reading(model.KindAirClimate, 0, false)
				s.Air.TemperatureC = 40
				return s
			}(),
			ctx:        DecisionContext{Now: now, Trigger: model.TriggerAuto},
			wantReason: model.ReasonTempTooHigh,
		},
		{
			name: "air too humid blocks irrigation",
			snapshot: func() model.Snapshot {
				s := baseSnapshot()
				s.Air = &model.SensorReading{Kind: model.KindAirClimate, TemperatureC: 20, HumidityPct: 95}
				return s
			}(),
			ctx:        DecisionContext{Now: now, Trigger: model.TriggerAuto},
			wantReason: model.ReasonAirTooHumid,
		},
		{
			name:       "no soil data",
			snapshot:   model.Snapshot{Water: reading(model.KindWaterLevel, 80, true)},
			ctx:        DecisionContext{Now: now, Trigger: model.TriggerAuto},
			wantReason: model.ReasonNoSoilData,
		},
		{
			name: "soil already optimal",
			snapshot: func() model.Snapshot {
				s := baseSnapshot()
				s.Soil = reading(model.KindSoilMoisture, 65, false)
				return s
			}(),
			ctx:        DecisionContext{Now: now, Trigger: model.TriggerAuto},
			wantReason: model.ReasonSoilOk,
		},
		{
			name: "soil too dry triggers irrigation",
			snapshot: func() model.Snapshot {
				s := baseSnapshot()
				s.Soil = reading(model.KindSoilMoisture, 20, true)
				return s
			}(),
			ctx:        DecisionContext{Now: now, Trigger: model.TriggerAuto},
			wantReason: model.ReasonSoilTooDry,
			wantIrr:    true,
		},
		{
			name: "between min and optimal waits",
			snapshot: func() model.Snapshot {
				s := baseSnapshot()
				s.Soil = reading(model.KindSoilMoisture, 50, false)
				return s
			}(),
			ctx:        DecisionContext{Now: now, Trigger: model.TriggerAuto},
			wantReason: model.ReasonWaiting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Evaluate(tt.snapshot, testProfile(), testSettings(), tt.ctx)
			assert.Equal(t, tt.wantReason, decision.Reason)
			assert.Equal(t, tt.wantIrr, decision.IsIrrigate)
		})
	}
}

func TestEvaluate_ManualOverrideSoilBypassesCooldownAndSoilGate(t *testing.T) {
	now := time.Now()
	snapshot := baseSnapshot()
	snapshot.Soil = reading(model.KindSoilMoisture, 90, false) // above optimal: would normally skip

	ctx := DecisionContext{
		Now:              now,
		LastIrrigationAt: ptrTime(now.Add(-1 * time.Minute)), // well within cooldown
		Trigger:          model.TriggerManual,
		OverrideSoil:     true,
	}

	decision := Evaluate(snapshot, testProfile(), testSettings(), ctx)
	assert.True(t, decision.IsIrrigate)
	assert.Equal(t, model.ReasonManual, decision.Reason)
	assert.Equal(t, testSettings().DurationSec, decision.DurationSec)
}

func TestEvaluate_ManualOverrideSoilNeverBypassesRainLock(t *testing.T) {
	now := time.Now()
	snapshot := baseSnapshot()
	snapshot.Rain = reading(model.KindRain, 0, true)

	ctx := DecisionContext{Now: now, Trigger: model.TriggerManual, OverrideSoil: true}

	decision := Evaluate(snapshot, testProfile(), testSettings(), ctx)
	assert.False(t, decision.IsIrrigate)
	assert.Equal(t, model.ReasonRainDetected, decision.Reason)
}

func TestEvaluate_ManualOverrideSoilNeverBypassesLowWater(t *testing.T) {
	now := time.Now()
	snapshot := baseSnapshot()
	snapshot.Water = reading(model.KindWaterLevel, 5, false)

	ctx := DecisionContext{Now: now, Trigger: model.TriggerManual, OverrideSoil: true}

	decision := Evaluate(snapshot, testProfile(), testSettings(), ctx)
	assert.False(t, decision.IsIrrigate)
	assert.Equal(t, model.ReasonLowWater, decision.Reason)
}

func TestEvaluate_ManualWithoutOverrideStillHonorsCooldown(t *testing.T) {
	now := time.Now()
	snapshot := baseSnapshot()
	snapshot.Soil = reading(model.KindSoilMoisture, 20, true)

	ctx := DecisionContext{
		Now:              now,
		LastIrrigationAt: ptrTime(now.Add(-1 * time.Minute)),
		Trigger:          model.TriggerManual,
		OverrideSoil:     false,
	}

	decision := Evaluate(snapshot, testProfile(), testSettings(), ctx)
	assert.False(t, decision.IsIrrigate)
	assert.Equal(t, model.ReasonMinInterval, decision.Reason)
}

func TestEvaluate_ManualTooDryReportsManualReason(t *testing.T) {
	now := time.Now()
	snapshot := baseSnapshot()
	snapshot.Soil = reading(model.KindSoilMoisture, 20, true)

	ctx := DecisionContext{Now: now, Trigger: model.TriggerManual}

	decision := Evaluate(snapshot, testProfile(), testSettings(), ctx)
	assert.True(t, decision.IsIrrigate)
	assert.Equal(t, model.ReasonManual, decision.Reason)
}

func TestEvaluate_CooldownBoundaryIsExclusive(t *testing.T) {
	now := time.Now()
	settings := testSettings()
	snapshot := baseSnapshot()
	snapshot.Soil = reading(model.KindSoilMoisture, 20, true)

	// Exactly at the boundary: elapsed == MinIntervalSec, not < it, so it should pass.
	ctx := DecisionContext{
		Now:              now,
		LastIrrigationAt: ptrTime(now.Add(-time.Duration(settings.MinIntervalSec) * time.Second)),
		Trigger:          model.TriggerAuto,
	}

	decision := Evaluate(snapshot, testProfile(), settings, ctx)
	assert.True(t, decision.IsIrrigate)
}

func TestEvaluate_ForecastRainAdvisorySkipsAheadOfWaiting(t *testing.T) {
	now := time.Now()
	snapshot := baseSnapshot()
	snapshot.Soil = reading(model.KindSoilMoisture, 50, false)

	rain := true
	ctx := DecisionContext{Now: now, Trigger: model.TriggerAuto, ForecastRain: &rain}

	decision := Evaluate(snapshot, testProfile(), testSettings(), ctx)
	assert.False(t, decision.IsIrrigate)
	assert.Equal(t, model.ReasonForecastRain, decision.Reason)
}

func TestEvaluate_ForecastRainNeverBlocksManualOverride(t *testing.T) {
	now := time.Now()
	snapshot := baseSnapshot()
	snapshot.Soil = reading(model.KindSoilMoisture, 90, false)

	rain := true
	ctx := DecisionContext{Now: now, Trigger: model.TriggerManual, OverrideSoil: true, ForecastRain: &rain}

	decision := Evaluate(snapshot, testProfile(), testSettings(), ctx)
	assert.True(t, decision.IsIrrigate)
	assert.Equal(t, model.ReasonManual, decision.Reason)
}

func ptrTime(t time.Time) *time.Time { return &t }
