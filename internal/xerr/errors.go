// Package xerr names the typed hardware and pump errors of the core:
// chip faults, pin-claim conflicts, and pump failures. The fatal
// startup error (ConfigurationError) lives in internal/config. Callers
// use errors.As against these types rather than matching strings.
package xerr

import "fmt"

// HardwareError wraps a chip-level failure (open, claim, read/write).
// Retryable in principle; the HAL surfaces it as Alert(SystemError).
type HardwareError struct {
	Op  string
	Pin int
	Err error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("hardware error during %s on pin %d: %s", e.Op, e.Pin, e.Err)
}

func (e *HardwareError) Unwrap() error { return e.Err }

// PinAlreadyClaimed is returned by claim_output/claim_input when the
// pin is already owned. A double-claim is a fatal configuration
// error per SPEC_FULL.md §3.
type PinAlreadyClaimed struct {
	Pin       int
	OwnedBy   string
	Requester string
}

func (e *PinAlreadyClaimed) Error() string {
	return fmt.Sprintf("pin %d already claimed by %q, cannot claim for %q", e.Pin, e.OwnedBy, e.Requester)
}

// PinNotClaimed is returned by write/read when the pin was never
// claimed.
type PinNotClaimed struct {
	Pin int
}

func (e *PinNotClaimed) Error() string {
	return fmt.Sprintf("pin %d has not been claimed", e.Pin)
}

// PumpBusy is returned by Pump.Start when the pump is already
// running.
type PumpBusy struct{}

func (e *PumpBusy) Error() string { return "pump is already running" }

// PumpError wraps a relay write or stop failure.
type PumpError struct {
	Op  string
	Err error
}

func (e *PumpError) Error() string {
	return fmt.Sprintf("pump %s failed: %s", e.Op, e.Err)
}

func (e *PumpError) Unwrap() error { return e.Err }
