// Package metrics defines the events a simulation run emits and the sink
// interfaces that record them. Sinks like PromSink and InfluxSink live in
// infra/metrics and can be combined with NewMultiSink; events reach sinks
// through the event bus collector.
package metrics

import (
	"time"

	"github.com/xzhou2018/FleetSim/core/model"
)

// ChargeEvent records energy drawn into the fleet's batteries.
type ChargeEvent struct {
	VehicleID string
	EnergyKWh float64
	Source    string // "tariff", "intraday" or "balancing"
	Time      time.Time
}

// BidEvent records a bid placed on a market.
type BidEvent struct {
	Market      model.MarketKind
	Slot        time.Time
	PriceEURMWh float64
	QuantityKW  float64
	Accepted    bool
	Time        time.Time
}

// SettlementEvent records the resolution of a commitment interval.
type SettlementEvent struct {
	Commitment  model.Commitment
	DeliveredKW float64
	ShortfallKW float64
	AmountEUR   float64
	Time        time.Time
}

// PoolSample is a snapshot of the energy pool level.
type PoolSample struct {
	LevelKWh    float64
	CapacityKWh float64
	Time        time.Time
}

// MetricsSink records charging events. Sinks may additionally implement the
// recorder interfaces below.
type MetricsSink interface {
	RecordCharge(ev ChargeEvent) error
}

// BidRecorder records market bids.
type BidRecorder interface {
	RecordBid(ev BidEvent) error
}

// SettlementRecorder records settlement outcomes.
type SettlementRecorder interface {
	RecordSettlement(ev SettlementEvent) error
}

// PoolRecorder records pool level samples.
type PoolRecorder interface {
	RecordPoolSample(ev PoolSample) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordCharge(ChargeEvent) error         { return nil }
func (NopSink) RecordBid(BidEvent) error               { return nil }
func (NopSink) RecordSettlement(SettlementEvent) error { return nil }
func (NopSink) RecordPoolSample(PoolSample) error      { return nil }
