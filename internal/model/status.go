package model

// Status is the coarse-grained status tag attached to a SystemState
// snapshot. Exactly one applies at a time; the controller loop is the
// only writer.
type Status string

const (
	StatusIdle       Status = "IDLE"
	StatusIrrigating Status = "IRRIGATING"
	StatusRaining    Status = "RAINING"
	StatusWarning    Status = "WARNING"
	StatusError      Status = "ERROR"
	StatusNoWater    Status = "NO_WATER"
	StatusOnline     Status = "ONLINE"
	StatusOffline    Status = "OFFLINE"
)
