// Package model holds the data types shared across the irrigation core:
// sensor readings, system snapshots, decisions, events and alerts.
// Nothing in this package talks to hardware, a clock, or a database —
// it is the vocabulary the other packages share.
package model

import "time"

// SensorKind identifies one of the fixed set of sensor types the
// controller understands. New kinds are not expected at runtime: the
// manager is keyed by this enum, not by a dynamic string.
type SensorKind string

const (
	KindSoilMoisture SensorKind = "soil_moisture"
	KindRain         SensorKind = "rain"
	KindWaterLevel   SensorKind = "water_level"
	KindAirClimate   SensorKind = "air_climate"
)

// SensorReading is a tagged union over the four sensor kinds. Only the
// fields relevant to Kind are meaningful; readers must switch on Kind
// rather than infer it from which fields are set. Once constructed a
// reading is never mutated — drivers build a new value on every
// sample.
type SensorReading struct {
	Kind      SensorKind
	Timestamp time.Time

	// SoilMoisture / WaterLevel
	Percent float64
	IsDry   bool // SoilMoisture only
	Detected bool // WaterLevel / Rain only

	// AirClimate
	TemperatureC float64
	HumidityPct  float64

	// Simulated marks a reading produced by a software fallback rather
	// than real hardware (AirClimate, when no one-wire library is
	// wired in). Never set for digital sensors.
	Simulated bool
}
