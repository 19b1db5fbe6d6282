// Package prediction provides forecasting of market clearing prices and of
// the aggregate charging capacity the fleet can offer at a future time. Bids
// must be placed before the true clearing price is known, so the controller
// relies on these forecasts for every bidding decision.
package prediction

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/xzhou2018/FleetSim/core/market"
	"github.com/xzhou2018/FleetSim/core/model"
)

// ErrNoHistory means no historical samples cover the requested timeslot.
var ErrNoHistory = errors.New("prediction: no historical samples for timeslot")

// Engine forecasts clearing prices and fleet capacity.
type Engine interface {
	// PredictClearingPrice forecasts the clearing price in EUR/MWh for the
	// slot starting at ts on the given market.
	PredictClearingPrice(kind model.MarketKind, ts time.Time) (float64, error)

	// PredictCapacity forecasts the aggregate charging capacity in kW the
	// fleet can offer for the slot starting at ts. The result is always
	// within [0, fleet size × per-vehicle charging power].
	PredictCapacity(ts time.Time) (float64, error)
}

type slotKey struct {
	weekday time.Weekday
	minute  int
}

// HistoryEngine forecasts from historical slot samples: the price forecast
// for a slot is the mean of all recorded prices at the same weekday and
// time of day, falling back to the same time of day across all weekdays when
// the weekday has no samples. Capacity forecasts average the expected number
// of available vehicles for the time of day and scale by the per-vehicle
// charging power.
type HistoryEngine struct {
	prices     map[model.MarketKind]map[slotKey][]float64
	daily      map[model.MarketKind]map[int][]float64
	capacity   map[int][]float64
	chargingKW float64
	maxKW      float64
}

// NewHistoryEngine builds an engine from the historical datasets. chargingKW
// is the per-vehicle charging power and fleetSize bounds the capacity
// forecast.
func NewHistoryEngine(intraday, balancing []model.PriceRecord, capacity []model.CapacityRecord, chargingKW float64, fleetSize int) (*HistoryEngine, error) {
	if chargingKW <= 0 {
		return nil, fmt.Errorf("prediction: charging power must be positive, got %v", chargingKW)
	}
	if fleetSize <= 0 {
		return nil, fmt.Errorf("prediction: fleet size must be positive, got %d", fleetSize)
	}
	e := &HistoryEngine{
		prices: map[model.MarketKind]map[slotKey][]float64{
			model.MarketIntraday:  make(map[slotKey][]float64),
			model.MarketBalancing: make(map[slotKey][]float64),
		},
		daily: map[model.MarketKind]map[int][]float64{
			model.MarketIntraday:  make(map[int][]float64),
			model.MarketBalancing: make(map[int][]float64),
		},
		capacity:   make(map[int][]float64),
		chargingKW: chargingKW,
		maxKW:      chargingKW * float64(fleetSize),
	}
	e.addPrices(model.MarketIntraday, intraday)
	e.addPrices(model.MarketBalancing, balancing)
	for _, r := range capacity {
		m := minuteOfDay(r.Slot, market.CapacitySlotDuration)
		e.capacity[m] = append(e.capacity[m], r.AvailableEVs)
	}
	return e, nil
}

func (e *HistoryEngine) addPrices(kind model.MarketKind, records []model.PriceRecord) {
	for _, r := range records {
		m := minuteOfDay(r.Slot, market.PriceSlotDuration)
		key := slotKey{weekday: r.Slot.Weekday(), minute: m}
		e.prices[kind][key] = append(e.prices[kind][key], r.EURPerMWh)
		e.daily[kind][m] = append(e.daily[kind][m], r.EURPerMWh)
	}
}

// PredictClearingPrice implements Engine.
func (e *HistoryEngine) PredictClearingPrice(kind model.MarketKind, ts time.Time) (float64, error) {
	byWeekday, ok := e.prices[kind]
	if !ok {
		return 0, fmt.Errorf("prediction: unknown market %v", kind)
	}
	m := minuteOfDay(ts, market.PriceSlotDuration)
	samples := byWeekday[slotKey{weekday: ts.Weekday(), minute: m}]
	if len(samples) == 0 {
		samples = e.daily[kind][m]
	}
	if len(samples) == 0 {
		return 0, fmt.Errorf("%w: %s %v", ErrNoHistory, kind, ts)
	}
	return stat.Mean(samples, nil), nil
}

// PredictCapacity implements Engine.
func (e *HistoryEngine) PredictCapacity(ts time.Time) (float64, error) {
	m := minuteOfDay(ts, market.CapacitySlotDuration)
	samples := e.capacity[m]
	if len(samples) == 0 {
		return 0, fmt.Errorf("%w: capacity %v", ErrNoHistory, ts)
	}
	kw := stat.Mean(samples, nil) * e.chargingKW
	if kw < 0 {
		kw = 0
	}
	if kw > e.maxKW {
		kw = e.maxKW
	}
	return kw, nil
}

// minuteOfDay buckets t to the start of its slot and returns minutes since
// midnight.
func minuteOfDay(t time.Time, slot time.Duration) int {
	t = t.Truncate(slot)
	return t.Hour()*60 + t.Minute()
}
