// Package actuators implements the pump relay and the four-LED status
// set on top of the HAL. The pump replaces the original
// water_pump.py's blocking time.sleep(duration) (and the teacher's
// single-shot GPIO write) with a cancellable timer, per SPEC_FULL.md
// §4.3/§9: ManualStop and the shutdown token must be able to preempt
// an in-progress run.
package actuators

import (
	"sync"
	"time"

	"github.com/irriga/controller/internal/hal"
	"github.com/irriga/controller/internal/xerr"
)

// Relay is the slice of the HAL the pump needs.
type Relay interface {
	ClaimOutput(pin int, initialLevel hal.Level, owner string) error
	Write(pin int, level hal.Level) error
}

// Pump drives a single relay-controlled water pump.
type Pump struct {
	pin   int
	relay Relay

	mu           sync.Mutex
	running      bool
	totalRunTime time.Duration
	lastStartAt  time.Time
	lastElapsed  time.Duration
	stopCh       chan struct{}
	stoppedCh    chan struct{}
}

func NewPump(pin int, relay Relay) *Pump {
	return &Pump{pin: pin, relay: relay}
}

// Setup claims the relay pin, driven low initially.
func (p *Pump) Setup() error {
	return p.relay.ClaimOutput(p.pin, hal.Low, "pump_relay")
}

// Start turns the relay on. If duration is zero this is a manual-on
// that returns immediately (elapsed 0) with the pump left running; the
// caller must call Stop explicitly. If duration is positive, Start
// blocks until the pump has run for that long or has been preempted by
// Stop, matching the controller's "pump.start(duration) synchronously"
// requirement in spec.md §4.6 while still being cancellable, unlike
// the original's bare time.sleep. The returned duration is the actual
// elapsed run time — equal to duration when the timer fires
// uninterrupted, shorter when a ManualStop or the shutdown token
// preempts it (spec.md §5, §8: "elapsed = recorded duration ± 1s").
func (p *Pump) Start(duration time.Duration) (time.Duration, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return 0, &xerr.PumpBusy{}
	}
	if err := p.relay.Write(p.pin, hal.High); err != nil {
		p.mu.Unlock()
		return 0, &xerr.PumpError{Op: "start", Err: err}
	}
	p.running = true
	p.lastStartAt = time.Now()
	p.stopCh = make(chan struct{})
	p.stoppedCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	if duration <= 0 {
		return 0, nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-timer.C:
		_, elapsed, err := p.Stop()
		return elapsed, err
	case <-stopCh:
		<-p.waitStopped()
		p.mu.Lock()
		elapsed := p.lastElapsed
		p.mu.Unlock()
		return elapsed, nil
	}
}

// waitStopped returns the channel Stop closes once it has finished
// recording elapsed run time, so Start can return only after the
// bookkeeping is consistent.
func (p *Pump) waitStopped() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stoppedCh
}

// Stop drives the relay low and accumulates the elapsed run time. It
// preempts an in-progress Start: this is how a manual stop or the
// shutdown token cuts a running irrigation short (spec.md §5). The
// returned bool reports whether a running pump was actually stopped,
// distinguishing {Stopped, NotRunning} per spec.md §6; the returned
// duration is the actual elapsed run time, which Start also returns to
// its own caller once a preempting Stop has recorded it.
func (p *Pump) Stop() (bool, time.Duration, error) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return false, 0, nil
	}
	elapsed := time.Since(p.lastStartAt)
	stopCh := p.stopCh
	stoppedCh := p.stoppedCh
	p.mu.Unlock()

	err := p.relay.Write(p.pin, hal.Low)

	p.mu.Lock()
	p.running = false
	p.totalRunTime += elapsed
	p.lastElapsed = elapsed
	p.mu.Unlock()

	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	close(stoppedCh)

	if err != nil {
		return true, elapsed, &xerr.PumpError{Op: "stop", Err: err}
	}
	return true, elapsed, nil
}

// IsRunning reports whether the pump is currently on.
func (p *Pump) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Status is an immutable snapshot of the pump's bookkeeping fields.
type Status struct {
	IsRunning    bool
	TotalRunTime time.Duration
	LastStartAt  time.Time
}

func (p *Pump) GetStatus() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := p.totalRunTime
	if p.running {
		total += time.Since(p.lastStartAt)
	}
	return Status{IsRunning: p.running, TotalRunTime: total, LastStartAt: p.lastStartAt}
}
