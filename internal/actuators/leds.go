package actuators

import (
	"sync"
	"time"

	"github.com/irriga/controller/internal/hal"
)

// LEDController is the slice of the HAL the four-LED set needs.
type LEDController interface {
	ClaimOutput(pin int, initialLevel hal.Level, owner string) error
	SetSteady(led string, pin int, level hal.Level) error
	StartBlink(led string, pin int, interval time.Duration) error
}

// LED names, used as the blink-scheduler key and for logging.
const (
	Red    = "red"
	Green  = "green"
	Yellow = "yellow"
	White  = "white"
)

// LEDs composes the HAL's steady/blink primitives into the
// four-LED status set (Red/Green/Yellow/White). This reconciles the
// teacher's three-LED trafficLight.go (package-level globals, no
// White/network LED) with the richer four-LED variant present in
// original_source/core/gpio_manager.py — authoritative per
// SPEC_FULL.md §4.3.
type LEDs struct {
	hal LEDController

	redPin, greenPin, yellowPin, whitePin int

	// mu guards last: the tick loop (White, network) and a manual
	// trigger's goroutine (Green, Yellow/Red) call Set/Blink
	// concurrently and are not otherwise mutually exclusive
	// (SPEC_FULL.md §5), so the map needs its own lock rather than
	// relying on the controller's actionMu.
	mu   sync.Mutex
	last map[string]ledState
}

type ledState struct {
	on      bool
	blink   bool
	interval time.Duration
}

func NewLEDs(h LEDController, redPin, greenPin, yellowPin, whitePin int) *LEDs {
	return &LEDs{
		hal:       h,
		redPin:    redPin,
		greenPin:  greenPin,
		yellowPin: yellowPin,
		whitePin:  whitePin,
		last:      make(map[string]ledState),
	}
}

// Setup claims all four LED pins as outputs, initially off.
func (l *LEDs) Setup() error {
	for name, pin := range map[string]int{Red: l.redPin, Green: l.greenPin, Yellow: l.yellowPin, White: l.whitePin} {
		if err := l.hal.ClaimOutput(pin, hal.Low, "led_"+name); err != nil {
			return err
		}
	}
	return nil
}

func (l *LEDs) pin(name string) int {
	switch name {
	case Red:
		return l.redPin
	case Green:
		return l.greenPin
	case Yellow:
		return l.yellowPin
	case White:
		return l.whitePin
	}
	return -1
}

// Set drives an LED to a steady on/off level. Idempotent: calling it
// twice with the same (on, false) state is a no-op on the second call
// (SPEC_FULL.md §8, §9 — mirrors the original's StatusLED.set_state
// short-circuit).
func (l *LEDs) Set(name string, on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	want := ledState{on: on}
	if l.last[name] == want {
		return nil
	}
	level := hal.Low
	if on {
		level = hal.High
	}
	if err := l.hal.SetSteady(name, l.pin(name), level); err != nil {
		return err
	}
	l.last[name] = want
	return nil
}

// Blink starts an LED blinking at interval. Idempotent under the same
// interval.
func (l *LEDs) Blink(name string, interval time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	want := ledState{on: true, blink: true, interval: interval}
	if l.last[name] == want {
		return nil
	}
	if err := l.hal.StartBlink(name, l.pin(name), interval); err != nil {
		return err
	}
	l.last[name] = want
	return nil
}

// AllOff drives every LED steady-off, used during shutdown.
func (l *LEDs) AllOff() error {
	var firstErr error
	for _, name := range []string{Red, Green, Yellow, White} {
		if err := l.Set(name, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
