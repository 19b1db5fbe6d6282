package market

import (
	"errors"
	"testing"
	"time"

	"github.com/xzhou2018/FleetSim/core/model"
)

var slotT = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func newTestMarket(t *testing.T, clearing float64) *Market {
	t.Helper()
	m, err := New(model.MarketIntraday, PriceSlotDuration, []model.PriceRecord{
		{Slot: slotT, EURPerMWh: clearing},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestBidBelowClearingIsRejected(t *testing.T) {
	m := newTestMarket(t, 60)
	com, ok, err := m.Bid(slotT, 50, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("bid below clearing accepted: %+v", com)
	}
}

func TestWinningBidPaysClearingPrice(t *testing.T) {
	m := newTestMarket(t, 60)
	com, ok, err := m.Bid(slotT, 70, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("bid at 70 against clearing 60 should clear")
	}
	if com.PriceEURMWh != 60 {
		t.Fatalf("commitment price %v, want clearing price 60", com.PriceEURMWh)
	}
	if com.QuantityKW != 10 || !com.Slot.Equal(slotT) {
		t.Fatalf("unexpected commitment %+v", com)
	}
	if com.ID == "" {
		t.Fatal("commitment has no id")
	}
}

func TestSecondWinningBidOnSameSlotFails(t *testing.T) {
	m := newTestMarket(t, 60)
	if _, ok, _ := m.Bid(slotT, 70, 10); !ok {
		t.Fatal("first bid should clear")
	}
	_, ok, err := m.Bid(slotT, 80, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("slot already committed, second bid must be rejected")
	}
	if got := len(m.Commitments()); got != 1 {
		t.Fatalf("expected 1 commitment, got %d", got)
	}
}

func TestRejectedBidLeavesSlotOpen(t *testing.T) {
	m := newTestMarket(t, 60)
	if _, ok, _ := m.Bid(slotT, 50, 10); ok {
		t.Fatal("low bid should be rejected")
	}
	if _, ok, _ := m.Bid(slotT, 65, 10); !ok {
		t.Fatal("retry at a higher price should clear")
	}
}

func TestBidOnMisalignedTimestampErrors(t *testing.T) {
	m := newTestMarket(t, 60)
	_, _, err := m.Bid(slotT.Add(7*time.Minute), 70, 10)
	if !errors.Is(err, ErrMisaligned) {
		t.Fatalf("expected ErrMisaligned, got %v", err)
	}
}

func TestBidWithoutPriceRecordErrors(t *testing.T) {
	m := newTestMarket(t, 60)
	_, _, err := m.Bid(slotT.Add(PriceSlotDuration), 70, 10)
	if !errors.Is(err, ErrNoPrice) {
		t.Fatalf("expected ErrNoPrice, got %v", err)
	}
}

func TestBidWithNonPositiveQuantityErrors(t *testing.T) {
	m := newTestMarket(t, 60)
	if _, _, err := m.Bid(slotT, 70, 0); err == nil {
		t.Fatal("expected error for zero quantity")
	}
}

func TestNewRejectsMisalignedPriceRecords(t *testing.T) {
	_, err := New(model.MarketBalancing, PriceSlotDuration, []model.PriceRecord{
		{Slot: slotT.Add(3 * time.Minute), EURPerMWh: 10},
	}, nil)
	if !errors.Is(err, ErrMisaligned) {
		t.Fatalf("expected ErrMisaligned, got %v", err)
	}
}

func TestHorizon(t *testing.T) {
	m, err := New(model.MarketBalancing, PriceSlotDuration, []model.PriceRecord{
		{Slot: slotT, EURPerMWh: 10},
		{Slot: slotT.Add(PriceSlotDuration), EURPerMWh: 20},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	h, ok := m.Horizon()
	if !ok {
		t.Fatal("expected a horizon")
	}
	if want := slotT.Add(2 * PriceSlotDuration); !h.Equal(want) {
		t.Fatalf("horizon %v want %v", h, want)
	}
}
