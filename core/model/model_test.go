package model

import (
	"testing"
	"time"
)

func TestTripValidate(t *testing.T) {
	start := time.Date(2016, 3, 1, 8, 0, 0, 0, time.UTC)
	good := Trip{ID: "t1", VehicleID: "ev1", Start: start, End: start.Add(time.Hour), DistanceKM: 5}
	if err := good.Validate(); err != nil {
		t.Fatal(err)
	}
	cases := map[string]Trip{
		"empty vehicle":    {ID: "t1", Start: start, End: start.Add(time.Hour), DistanceKM: 5},
		"end before start": {ID: "t1", VehicleID: "ev1", Start: start, End: start.Add(-time.Hour)},
		"zero duration":    {ID: "t1", VehicleID: "ev1", Start: start, End: start},
		"negative distance": {ID: "t1", VehicleID: "ev1", Start: start, End: start.Add(time.Hour), DistanceKM: -1},
	}
	for name, trip := range cases {
		t.Run(name, func(t *testing.T) {
			if err := trip.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCommitmentEnergyKWh(t *testing.T) {
	c := Commitment{QuantityKW: 40}
	if got := c.EnergyKWh(15 * time.Minute); got != 10 {
		t.Fatalf("got %v kWh want 10", got)
	}
	if got := c.EnergyKWh(5 * time.Minute); got < 3.33 || got > 3.34 {
		t.Fatalf("got %v kWh want ~3.33", got)
	}
}

func TestEnumStrings(t *testing.T) {
	if MarketIntraday.String() != "intraday" || MarketBalancing.String() != "balancing" {
		t.Fatal("market kind strings")
	}
	if StateIdle.String() != "idle" || StateCharging.String() != "charging" || StateRenting.String() != "renting" {
		t.Fatal("vehicle state strings")
	}
}
