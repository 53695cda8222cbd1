package model

// ReasonCode is the closed set of stable identifiers attached to
// every decision outcome and irrigation event. These are surfaced to
// operators and UIs, so the strings are part of the contract — do not
// rename without updating §6 of SPEC_FULL.md.
type ReasonCode string

const (
	ReasonRainDetected ReasonCode = "RAIN_DETECTED"
	ReasonLowWater     ReasonCode = "LOW_WATER"
	ReasonDailyLimit   ReasonCode = "DAILY_LIMIT"
	ReasonMinInterval  ReasonCode = "MIN_INTERVAL"
	ReasonTempTooLow   ReasonCode = "TEMP_TOO_LOW"
	ReasonTempTooHigh  ReasonCode = "TEMP_TOO_HIGH"
	ReasonAirTooHumid  ReasonCode = "AIR_TOO_HUMID"
	ReasonNoSoilData   ReasonCode = "NO_SOIL_DATA"
	ReasonSoilOk       ReasonCode = "SOIL_OK"
	ReasonSoilTooDry   ReasonCode = "SOIL_TOO_DRY"
	ReasonWaiting      ReasonCode = "WAITING"
	ReasonManual       ReasonCode = "MANUAL"

	// ReasonForecastRain is an optional advisory reason, injected only
	// when a non-nil forecast advisory is wired in (SPEC_FULL.md §9).
	ReasonForecastRain ReasonCode = "FORECAST_RAIN"
)

// Trigger distinguishes an automatic tick from a manual request. It
// never changes which interlocks apply (rain, water, daily quota) —
// only whether the cooldown and soil-gate rules can be bypassed.
type Trigger string

const (
	TriggerAuto   Trigger = "AUTO"
	TriggerManual Trigger = "MANUAL"
)

// Outcome records whether an irrigation run actually completed.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// Decision is the tagged-union result of evaluating the rule set: it
// is either an instruction to irrigate for a duration, or a skip with
// a reason. IsIrrigate is the tag; DurationSec/Reason are read
// together depending on it.
type Decision struct {
	IsIrrigate  bool
	DurationSec int
	Reason      ReasonCode
}

func Irrigate(durationSec int, reason ReasonCode) Decision {
	return Decision{IsIrrigate: true, DurationSec: durationSec, Reason: reason}
}

func Skip(reason ReasonCode) Decision {
	return Decision{IsIrrigate: false, Reason: reason}
}
