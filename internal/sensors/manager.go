package sensors

import (
	"context"
	"time"

	"github.com/irriga/controller/internal/model"
)

// ReadResult pairs a driver's reading with its health status, as
// returned by Manager.ReadAll.
type ReadResult struct {
	Reading *model.SensorReading
	OK      bool
	Healthy bool
}

// Manager holds one driver per sensor kind and offers the aggregate
// read operations SPEC_FULL.md §4.2 specifies.
type Manager struct {
	drivers map[model.SensorKind]Driver
}

func NewManager(drivers ...Driver) *Manager {
	m := &Manager{drivers: make(map[model.SensorKind]Driver, len(drivers))}
	for _, d := range drivers {
		m.drivers[d.Kind()] = d
	}
	return m
}

// Setup lazily initializes every driver. Safe to call repeatedly;
// each driver's own setupOnce makes the work idempotent.
func (m *Manager) Setup(ctx context.Context) error {
	for _, d := range m.drivers {
		if err := d.Setup(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ReadAll samples every driver and returns a per-kind result map.
func (m *Manager) ReadAll(ctx context.Context, now time.Time) map[model.SensorKind]ReadResult {
	out := make(map[model.SensorKind]ReadResult, len(m.drivers))
	for kind, d := range m.drivers {
		reading, ok := d.Read(ctx, now)
		out[kind] = ReadResult{Reading: reading, OK: ok, Healthy: d.Healthy()}
	}
	return out
}

// ReadOne samples a single driver by kind.
func (m *Manager) ReadOne(ctx context.Context, kind model.SensorKind, now time.Time) (ReadResult, bool) {
	d, ok := m.drivers[kind]
	if !ok {
		return ReadResult{}, false
	}
	reading, readOK := d.Read(ctx, now)
	return ReadResult{Reading: reading, OK: readOK, Healthy: d.Healthy()}, true
}

// Cleanup tears down every driver.
func (m *Manager) Cleanup() error {
	var firstErr error
	for _, d := range m.drivers {
		if err := d.Cleanup(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
