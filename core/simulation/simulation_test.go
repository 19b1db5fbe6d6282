package simulation

import (
	"math"
	"testing"
	"time"

	"github.com/xzhou2018/FleetSim/core/market"
	"github.com/xzhou2018/FleetSim/core/model"
	"github.com/xzhou2018/FleetSim/data"
	"github.com/xzhou2018/FleetSim/infra/logger"
)

var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func synthTrip(id, vehicle string, start time.Time, dur time.Duration, km float64) model.Trip {
	return model.Trip{ID: id, VehicleID: vehicle, Start: start, End: start.Add(dur), DistanceKM: km}
}

// priceSeries generates aligned 15-minute records from monday to monday+span.
func priceSeries(span time.Duration, eurMWh float64) []model.PriceRecord {
	var recs []model.PriceRecord
	for at := monday; !at.After(monday.Add(span)); at = at.Add(market.PriceSlotDuration) {
		recs = append(recs, model.PriceRecord{Slot: at, EURPerMWh: eurMWh})
	}
	return recs
}

func capacitySeries(span time.Duration, evs float64) []model.CapacityRecord {
	var recs []model.CapacityRecord
	for at := monday; !at.After(monday.Add(span)); at = at.Add(market.CapacitySlotDuration) {
		recs = append(recs, model.CapacityRecord{Slot: at, AvailableEVs: evs})
	}
	return recs
}

// Two vehicles replaying trips under the regular strategy: energy is drawn,
// recharged at the tariff, and the markets stay untouched.
func TestRunRegularStrategy(t *testing.T) {
	ds := &data.Dataset{
		Trips: []model.Trip{
			synthTrip("t1", "ev1", monday.Add(time.Hour), time.Hour, 40),
			synthTrip("t2", "ev2", monday.Add(90*time.Minute), time.Hour, 80),
			// ev1 recharges in the four-hour gap before this one.
			synthTrip("t3", "ev1", monday.Add(6*time.Hour), time.Hour, 40),
		},
	}
	cfg := Config{Name: "regular-run", Strategy: "regular", Stats: true}
	s, err := New(cfg, ds, nil, logger.NopLogger{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Run()
	if err != nil {
		t.Fatal(err)
	}

	if res.Name != "regular-run" {
		t.Fatalf("result name %q", res.Name)
	}
	// ev1 refills the 4.4 kWh its first trip drained; ev2 never idles before
	// another trip, so nothing else is charged.
	if math.Abs(res.TotalChargedKWh-4.4) > 0.01 {
		t.Fatalf("charged %v kWh want ~4.4", res.TotalChargedKWh)
	}
	if res.Bids != 0 || res.AcceptedBids != 0 {
		t.Fatalf("regular strategy placed %d bids", res.Bids)
	}
	if res.ImbalanceKW != 0 || res.RefusedRentals != 0 || res.ShortfallKWh != 0 {
		t.Fatalf("unexpected penalties: imbalance=%v refused=%d shortfall=%v",
			res.ImbalanceKW, res.RefusedRentals, res.ShortfallKWh)
	}
	if want := -4.4 / 1000 * 190; math.Abs(res.BalanceEUR-want) > 0.001 {
		t.Fatalf("balance %v EUR want %v", res.BalanceEUR, want)
	}
}

// With cheap intraday prices the controller wins commitments and buys energy;
// the roomy pool absorbs every delivery so no imbalance accrues.
func TestRunIntradayStrategy(t *testing.T) {
	span := 4 * time.Hour
	ds := &data.Dataset{
		Trips: []model.Trip{
			synthTrip("t1", "ev1", monday.Add(time.Hour), time.Hour, 40),
			synthTrip("t2", "ev2", monday.Add(2*time.Hour), time.Hour, 40),
			synthTrip("t3", "ev1", monday.Add(210*time.Minute), 30*time.Minute, 20),
		},
		IntradayPrices: priceSeries(span, 40),
		Capacity:       capacitySeries(span, 1),
	}
	cfg := Config{Strategy: "intraday", Stats: false}
	s, err := New(cfg, ds, nil, logger.NopLogger{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Run()
	if err != nil {
		t.Fatal(err)
	}

	if res.Bids == 0 || res.AcceptedBids == 0 {
		t.Fatalf("expected winning intraday bids, got bids=%d accepted=%d", res.Bids, res.AcceptedBids)
	}
	if res.ImbalanceKW != 0 {
		t.Fatalf("imbalance %v kW want 0", res.ImbalanceKW)
	}
	if res.TotalChargedKWh <= 0 {
		t.Fatal("no energy charged")
	}
	// Both tariff charging and intraday purchases are debits.
	if res.BalanceEUR >= 0 {
		t.Fatalf("balance %v EUR, want negative", res.BalanceEUR)
	}
	if res.Name == "" {
		t.Fatal("default run name not applied")
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	trips := []model.Trip{synthTrip("t1", "ev1", monday, time.Hour, 10)}

	if _, err := New(Config{}, &data.Dataset{}, nil, logger.NopLogger{}); err == nil {
		t.Fatal("expected error for empty dataset")
	}
	if _, err := New(Config{Strategy: "arbitrage"}, &data.Dataset{Trips: trips}, nil, logger.NopLogger{}); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
	if _, err := New(Config{ChargingSpeedKW: -1}, &data.Dataset{Trips: trips}, nil, logger.NopLogger{}); err == nil {
		t.Fatal("expected error for negative charging speed")
	}
}
