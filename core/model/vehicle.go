package model

// VehicleState describes where a vehicle is in its rental/charging lifecycle.
type VehicleState int

const (
	StateIdle VehicleState = iota
	StateCharging
	StateRenting
)

// String returns a human-readable representation of the state.
func (s VehicleState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCharging:
		return "charging"
	case StateRenting:
		return "renting"
	default:
		return "unknown"
	}
}
