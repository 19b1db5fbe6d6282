package model

import "time"

// MarketKind identifies which electricity market a price or commitment
// belongs to.
type MarketKind int

const (
	MarketIntraday MarketKind = iota
	MarketBalancing
)

// String returns the market name.
func (k MarketKind) String() string {
	switch k {
	case MarketIntraday:
		return "intraday"
	case MarketBalancing:
		return "balancing"
	default:
		return "unknown"
	}
}

// PriceRecord is one historical clearing price for a timeslot.
type PriceRecord struct {
	Slot      time.Time
	EURPerMWh float64
}

// CapacityRecord is the expected number of idle, rentable vehicles for a
// timeslot. It feeds the fleet capacity prediction.
type CapacityRecord struct {
	Slot         time.Time
	AvailableEVs float64
}

// Commitment is an accepted market bid: the fleet is obliged to draw
// QuantityKW of charging load for the slot. Price carries the slot's clearing
// price (uniform pricing), not the bid price.
type Commitment struct {
	ID          string
	Market      MarketKind
	Slot        time.Time
	QuantityKW  float64
	PriceEURMWh float64
}

// EnergyKWh returns the energy the commitment obliges over a slot of the
// given duration.
func (c Commitment) EnergyKWh(slot time.Duration) float64 {
	return c.QuantityKW * slot.Hours()
}
