// Package strategy defines the charging strategies the controller evaluates
// on every decision interval. Strategies are pure: they map fleet and market
// state to a decision, and the controller carries out the side effects.
package strategy

import (
	"fmt"
	"time"

	"github.com/xzhou2018/FleetSim/core/model"
)

// Forecast is the controller's view of one market for the upcoming slot.
type Forecast struct {
	Slot        time.Time
	PriceEURMWh float64
	CapacityKW  float64
	Valid       bool
}

// Input is the state a strategy decides on.
type Input struct {
	Now              time.Time
	PoolLevelKWh     float64
	PoolCapacityKWh  float64
	IdleVehicles     int
	ChargingVehicles int
	TariffEURMWh     float64
	Intraday         Forecast
	Balancing        Forecast
}

// Bid asks the controller to place a bid on a market.
type Bid struct {
	Market      model.MarketKind
	Slot        time.Time
	PriceEURMWh float64
	QuantityKW  float64
}

// Decision is the outcome of one strategy evaluation.
type Decision struct {
	Charge bool
	Bid    *Bid
}

// Strategy maps fleet and market state to a charging/bidding decision.
type Strategy interface {
	Name() string
	Evaluate(in Input) Decision
}

// New returns the strategy selected by name: regular, balancing or intraday.
func New(name string, priceMarginEURMWh float64) (Strategy, error) {
	switch name {
	case "regular":
		return Regular{}, nil
	case "balancing":
		return Balancing{MarginEURMWh: priceMarginEURMWh}, nil
	case "intraday":
		return Intraday{MarginEURMWh: priceMarginEURMWh}, nil
	default:
		return nil, fmt.Errorf("strategy: unknown strategy %q", name)
	}
}

// Regular charges idle vehicles at the industry tariff and never touches the
// markets.
type Regular struct{}

func (Regular) Name() string { return "regular" }

func (Regular) Evaluate(in Input) Decision {
	return Decision{Charge: in.IdleVehicles > 0}
}

// Balancing charges like Regular but additionally offers fleet capacity on
// the balancing market: activated charging load is paid the activation price,
// so any slot with a positive predicted price and available capacity is worth
// bidding on.
type Balancing struct {
	// MarginEURMWh is added to the predicted clearing price to raise the
	// odds of clearing when the forecast is low.
	MarginEURMWh float64
}

func (Balancing) Name() string { return "balancing" }

func (s Balancing) Evaluate(in Input) Decision {
	d := Decision{Charge: in.IdleVehicles > 0}
	f := in.Balancing
	if !f.Valid || f.CapacityKW <= 0 || f.PriceEURMWh <= 0 {
		return d
	}
	d.Bid = &Bid{
		Market:      model.MarketBalancing,
		Slot:        f.Slot,
		PriceEURMWh: f.PriceEURMWh + s.MarginEURMWh,
		QuantityKW:  f.CapacityKW,
	}
	return d
}

// Intraday charges like Regular but buys charging energy on the intraday
// market whenever the predicted clearing price undercuts the industry tariff.
type Intraday struct {
	MarginEURMWh float64
}

func (Intraday) Name() string { return "intraday" }

func (s Intraday) Evaluate(in Input) Decision {
	d := Decision{Charge: in.IdleVehicles > 0}
	f := in.Intraday
	if !f.Valid || f.CapacityKW <= 0 {
		return d
	}
	limit := f.PriceEURMWh + s.MarginEURMWh
	if limit >= in.TariffEURMWh {
		// No saving over the tariff, keep regular charging.
		return d
	}
	d.Bid = &Bid{
		Market:      model.MarketIntraday,
		Slot:        f.Slot,
		PriceEURMWh: limit,
		QuantityKW:  f.CapacityKW,
	}
	return d
}
