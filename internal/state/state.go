// Package state holds the single SystemState instance: the
// source-of-truth snapshot of the latest sensor readings, actuator
// positions, and status the decision engine and status hooks read
// from. The controller loop and actuators are its only writers.
package state

import (
	"sync"
	"time"

	"github.com/irriga/controller/internal/model"
)

// historyCapacity bounds the in-memory snapshot ring, per
// SPEC_FULL.md §3.
const historyCapacity = 1000

// State is the thread-safe, single instance of SystemState.
type State struct {
	mu sync.RWMutex

	soil  *model.SensorReading
	rain  *model.SensorReading
	water *model.SensorReading
	air   *model.SensorReading

	actuators map[string]bool

	status  model.Status
	errMsg  string
	warnMsg string

	lastUpdate time.Time

	history    []model.Snapshot
	historyPos int
}

func New() *State {
	return &State{
		actuators: make(map[string]bool),
		status:    model.StatusIdle,
		history:   make([]model.Snapshot, 0, historyCapacity),
	}
}

// UpdateSensor writes the latest reading for its kind. Last write
// wins; readers never see a half-updated reading because
// SensorReading values are immutable once constructed.
func (s *State) UpdateSensor(r *model.SensorReading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Kind {
	case model.KindSoilMoisture:
		s.soil = r
	case model.KindRain:
		s.rain = r
	case model.KindWaterLevel:
		s.water = r
	case model.KindAirClimate:
		s.air = r
	}
	s.lastUpdate = r.Timestamp
}

// SetActuator records an actuator's on/off position.
func (s *State) SetActuator(name string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actuators[name] = on
}

// SetStatus updates the status tag and optional error/warning text.
func (s *State) SetStatus(status model.Status, errMsg, warnMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.errMsg = errMsg
	s.warnMsg = warnMsg
}

// Snapshot returns an immutable copy of the current state and appends
// it to the bounded history ring.
func (s *State) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotAndRecordLocked(time.Now())
}

// SnapshotAt is Snapshot with an injected clock, for deterministic
// tests.
func (s *State) SnapshotAt(now time.Time) model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotAndRecordLocked(now)
}

func (s *State) snapshotAndRecordLocked(now time.Time) model.Snapshot {
	actuators := make(map[string]bool, len(s.actuators))
	for k, v := range s.actuators {
		actuators[k] = v
	}

	snap := model.Snapshot{
		Timestamp: now,
		Soil:      s.soil,
		Rain:      s.rain,
		Water:     s.water,
		Air:       s.air,
		Actuators: actuators,
		Status:    s.status,
		Error:     s.errMsg,
		Warning:   s.warnMsg,
	}

	if len(s.history) < historyCapacity {
		s.history = append(s.history, snap)
	} else {
		s.history[s.historyPos] = snap
		s.historyPos = (s.historyPos + 1) % historyCapacity
	}

	return snap
}

// SoilIsDry reports whether the latest soil reading is at or below
// threshold percent.
func (s *State) SoilIsDry(threshold float64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.soil != nil && s.soil.Percent <= threshold
}

// WaterIsLow reports whether the latest water level reading is below
// threshold percent.
func (s *State) WaterIsLow(threshold float64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.water != nil && s.water.Percent < threshold
}

// IsRaining reports whether the latest rain reading detected rain.
func (s *State) IsRaining() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rain != nil && s.rain.Detected
}

// History returns a copy of the bounded snapshot ring, oldest first.
func (s *State) History() []model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.history) < historyCapacity {
		out := make([]model.Snapshot, len(s.history))
		copy(out, s.history)
		return out
	}

	out := make([]model.Snapshot, historyCapacity)
	copy(out, s.history[s.historyPos:])
	copy(out[historyCapacity-s.historyPos:], s.history[:s.historyPos])
	return out
}
