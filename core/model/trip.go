package model

import (
	"fmt"
	"time"
)

// Trip is one historical rental to be replayed against a vehicle.
type Trip struct {
	ID            string
	VehicleID     string
	Start         time.Time
	End           time.Time
	DistanceKM    float64
	StartLocation string
	EndLocation   string
}

// Duration returns the rental duration.
func (t Trip) Duration() time.Duration { return t.End.Sub(t.Start) }

// Validate checks the trip is replayable.
func (t Trip) Validate() error {
	if t.VehicleID == "" {
		return fmt.Errorf("trip %s: empty vehicle id", t.ID)
	}
	if !t.End.After(t.Start) {
		return fmt.Errorf("trip %s: end %v not after start %v", t.ID, t.End, t.Start)
	}
	if t.DistanceKM < 0 {
		return fmt.Errorf("trip %s: negative distance %v", t.ID, t.DistanceKM)
	}
	return nil
}
