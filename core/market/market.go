// Package market models the electricity markets the fleet bids into. Each
// market resolves bids against historical clearing prices at a fixed slot
// granularity and tracks at most one accepted commitment per slot.
package market

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/xzhou2018/FleetSim/core/logger"
	"github.com/xzhou2018/FleetSim/core/model"
)

// PriceSlotDuration is the timeslot granularity for intraday and balancing
// clearing prices.
const PriceSlotDuration = 15 * time.Minute

// CapacitySlotDuration is the granularity of fleet capacity predictions.
const CapacitySlotDuration = 5 * time.Minute

var (
	// ErrNoPrice means no price record covers the requested timeslot.
	ErrNoPrice = errors.New("market: no price record for timeslot")
	// ErrMisaligned means the timestamp is not aligned to the slot duration.
	ErrMisaligned = errors.New("market: timestamp not aligned to slot duration")
)

// Market holds the clearing prices of one market and the commitments won on
// it during a run.
type Market struct {
	kind        model.MarketKind
	slot        time.Duration
	prices      map[int64]float64
	commitments map[int64]model.Commitment
	log         logger.Logger
}

// New builds a market from historical price records. Records whose slot is
// not aligned to the slot duration are rejected.
func New(kind model.MarketKind, slot time.Duration, prices []model.PriceRecord, log logger.Logger) (*Market, error) {
	if slot <= 0 {
		return nil, fmt.Errorf("market %s: slot duration must be positive", kind)
	}
	m := &Market{
		kind:        kind,
		slot:        slot,
		prices:      make(map[int64]float64, len(prices)),
		commitments: make(map[int64]model.Commitment),
		log:         log,
	}
	for _, r := range prices {
		if !r.Slot.Truncate(slot).Equal(r.Slot) {
			return nil, fmt.Errorf("market %s: price record at %v: %w", kind, r.Slot, ErrMisaligned)
		}
		m.prices[r.Slot.Unix()] = r.EURPerMWh
	}
	return m, nil
}

// Kind returns which market this is.
func (m *Market) Kind() model.MarketKind { return m.kind }

// SlotDuration returns the market's timeslot granularity.
func (m *Market) SlotDuration() time.Duration { return m.slot }

// ClearingPrice returns the clearing price for the slot starting at ts.
func (m *Market) ClearingPrice(ts time.Time) (float64, error) {
	if !ts.Truncate(m.slot).Equal(ts) {
		return 0, fmt.Errorf("market %s: %v: %w", m.kind, ts, ErrMisaligned)
	}
	price, ok := m.prices[ts.Unix()]
	if !ok {
		return 0, fmt.Errorf("market %s: %v: %w", m.kind, ts, ErrNoPrice)
	}
	return price, nil
}

// Bid offers to draw quantityKW of charging load for the slot starting at ts,
// willing to pay up to priceEURMWh. The bid is accepted iff the price meets
// the slot's clearing price and no commitment exists for the slot yet; the
// returned commitment carries the clearing price. ok is false for a rejected
// bid, which is not an error: the caller may retry at a higher price. A
// timestamp with no price record is an error.
func (m *Market) Bid(ts time.Time, priceEURMWh, quantityKW float64) (model.Commitment, bool, error) {
	if quantityKW <= 0 {
		return model.Commitment{}, false, fmt.Errorf("market %s: bid quantity must be positive, got %v", m.kind, quantityKW)
	}
	clearing, err := m.ClearingPrice(ts)
	if err != nil {
		return model.Commitment{}, false, err
	}
	key := ts.Unix()
	if _, taken := m.commitments[key]; taken {
		if m.log != nil {
			m.log.Debugf("%s: slot %v already committed, bid rejected", m.kind, ts)
		}
		return model.Commitment{}, false, nil
	}
	if priceEURMWh < clearing {
		if m.log != nil {
			m.log.Debugf("%s: bid %v below clearing %v for slot %v", m.kind, priceEURMWh, clearing, ts)
		}
		return model.Commitment{}, false, nil
	}
	c := model.Commitment{
		ID:          uuid.NewString(),
		Market:      m.kind,
		Slot:        ts,
		QuantityKW:  quantityKW,
		PriceEURMWh: clearing,
	}
	m.commitments[key] = c
	return c, true, nil
}

// Commitment returns the accepted commitment for the slot, if any.
func (m *Market) Commitment(ts time.Time) (model.Commitment, bool) {
	c, ok := m.commitments[ts.Unix()]
	return c, ok
}

// Commitments returns all accepted commitments ordered by slot.
func (m *Market) Commitments() []model.Commitment {
	out := make([]model.Commitment, 0, len(m.commitments))
	for _, c := range m.commitments {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot.Before(out[j].Slot) })
	return out
}

// Horizon returns the latest slot covered by a price record. ok is false when
// the market has no prices at all.
func (m *Market) Horizon() (time.Time, bool) {
	var max int64
	found := false
	for k := range m.prices {
		if !found || k > max {
			max = k
			found = true
		}
	}
	if !found {
		return time.Time{}, false
	}
	return time.Unix(max, 0).UTC().Add(m.slot), true
}
