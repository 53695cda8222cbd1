// Package sensors implements the typed sensor drivers and the manager
// that aggregates them. Every driver follows the same contract: lazy
// one-time setup, a cached read with a per-sensor minimum sample
// interval, a three-strike health counter, and cleanup. This replaces
// the original Python drivers' exception-based control flow (see
// SPEC_FULL.md §4.2, §9) with an explicit reading-or-none result.
package sensors

import (
	"context"
	"sync"
	"time"

	"github.com/irriga/controller/internal/hal"
	"github.com/irriga/controller/internal/model"
)

// defaultMinInterval is the cache window applied between samples of
// the same sensor, per SPEC_FULL.md §4.2.
const defaultMinInterval = 2 * time.Second

// unhealthyThreshold is the number of consecutive failed samples
// after which a driver reports itself unhealthy.
const unhealthyThreshold = 3

// Driver is the common reader contract every sensor implements.
type Driver interface {
	Kind() model.SensorKind
	Setup(ctx context.Context) error
	Read(ctx context.Context, now time.Time) (*model.SensorReading, bool)
	Healthy() bool
	Cleanup() error
}

// PinSource is the slice of the HAL a digital driver needs: claim an
// input once, then read it on demand.
type PinSource interface {
	ClaimInput(pin int, owner string) error
	Read(pin int) (hal.Level, error)
}

// base provides the cache-and-health bookkeeping shared by every
// driver. Embed it and call sampleOrCached from Read.
type base struct {
	kind        model.SensorKind
	minInterval time.Duration

	mu           sync.Mutex
	setupOnce    sync.Once
	setupErr     error
	lastSampleAt time.Time
	lastReading  *model.SensorReading
	failures     int
}

func newBase(kind model.SensorKind, minInterval time.Duration) base {
	if minInterval <= 0 {
		minInterval = defaultMinInterval
	}
	return base{kind: kind, minInterval: minInterval}
}

func (b *base) Kind() model.SensorKind { return b.kind }

// sampleOrCached returns the cached reading if it is still within the
// minimum sample interval; otherwise it calls sample, updates the
// health counter, and caches the result.
func (b *base) sampleOrCached(now time.Time, sample func() (*model.SensorReading, error)) (*model.SensorReading, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lastReading != nil && now.Sub(b.lastSampleAt) < b.minInterval {
		return b.lastReading, true
	}

	reading, err := sample()
	if err != nil || reading == nil {
		b.failures++
		return nil, false
	}

	b.failures = 0
	b.lastReading = reading
	b.lastSampleAt = now
	return reading, true
}

func (b *base) Healthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures < unhealthyThreshold
}
