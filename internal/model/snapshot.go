package model

import "time"

// Snapshot is an immutable copy of SystemState at a point in time. It
// is what external status queries and the bounded history ring hand
// out — callers can never see a state that is still being written.
type Snapshot struct {
	Timestamp time.Time

	Soil   *SensorReading
	Rain   *SensorReading
	Water  *SensorReading
	Air    *SensorReading

	Actuators map[string]bool // actuator name -> on/off

	Status  Status
	Error   string
	Warning string
}

// SoilIsDry reports whether the latest soil reading is at or below
// threshold. A missing reading is not dry — callers must check for
// nil separately if "no data" needs distinct handling.
func (s Snapshot) SoilIsDry(threshold float64) bool {
	return s.Soil != nil && s.Soil.Percent <= threshold
}

// WaterIsLow reports whether the latest water level reading is below
// threshold.
func (s Snapshot) WaterIsLow(threshold float64) bool {
	return s.Water != nil && s.Water.Percent < threshold
}

// IsRaining reports whether the latest rain reading detected rain.
func (s Snapshot) IsRaining() bool {
	return s.Rain != nil && s.Rain.Detected
}
