package controller

import (
	"math"
	"testing"
	"time"

	"github.com/xzhou2018/FleetSim/core/account"
	"github.com/xzhou2018/FleetSim/core/energy"
	"github.com/xzhou2018/FleetSim/core/fleet"
	"github.com/xzhou2018/FleetSim/core/market"
	"github.com/xzhou2018/FleetSim/core/model"
	"github.com/xzhou2018/FleetSim/core/prediction"
	"github.com/xzhou2018/FleetSim/core/sim"
	"github.com/xzhou2018/FleetSim/core/strategy"
	"github.com/xzhou2018/FleetSim/infra/logger"
)

var t0 = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

type fixture struct {
	env       *sim.Environment
	pool      *energy.Pool
	acct      *account.Account
	intraday  *market.Market
	balancing *market.Market
	ctrl      *Controller
}

// slots returns aligned 15-minute price records starting at the first slot
// after t0, all at the same clearing price.
func slots(n int, clearing float64) []model.PriceRecord {
	recs := make([]model.PriceRecord, n)
	for i := range recs {
		recs[i] = model.PriceRecord{
			Slot:      t0.Add(time.Duration(i+1) * market.PriceSlotDuration),
			EURPerMWh: clearing,
		}
	}
	return recs
}

func newFixture(t *testing.T, strategyName string, pred prediction.Engine, poolKWh, clearing float64) *fixture {
	t.Helper()
	log := logger.NopLogger{}
	env := sim.NewEnvironment(t0, log)
	pool, err := energy.NewPool(env, poolKWh, log)
	if err != nil {
		t.Fatal(err)
	}
	intraday, err := market.New(model.MarketIntraday, market.PriceSlotDuration, slots(3, clearing), log)
	if err != nil {
		t.Fatal(err)
	}
	balancing, err := market.New(model.MarketBalancing, market.PriceSlotDuration, slots(3, clearing), log)
	if err != nil {
		t.Fatal(err)
	}
	strat, err := strategy.New(strategyName, 10)
	if err != nil {
		t.Fatal(err)
	}
	acct := account.New(log)
	ctrl, err := New(env, strat, intraday, balancing, pred, pool, acct, nil, log, Config{TariffEURMWh: 190})
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{env: env, pool: pool, acct: acct, intraday: intraday, balancing: balancing, ctrl: ctrl}
}

func approx(got, want float64) bool { return math.Abs(got-want) < 1e-9 }

// A balancing commitment the pool cannot fully absorb is settled at the pool
// headroom; the shortfall accumulates as imbalance and the delivered energy is
// credited at the activation price.
func TestBalancingSettlementAccruesImbalance(t *testing.T) {
	pred := prediction.MockEngine{
		Prices:     map[model.MarketKind]float64{model.MarketBalancing: 50},
		CapacityKW: 40,
	}
	// Pool holds 5 kWh against a 10 kWh commitment (40 kW over 15 min).
	f := newFixture(t, "balancing", pred, 5, 40)
	f.env.Process("controller", f.ctrl.Run)
	f.env.Run(t0.Add(30 * time.Minute))

	// Evaluations at +0, +15 and +30 each target a fresh slot; the ones in
	// between hit an already-won slot and place nothing.
	if f.ctrl.Bids() != 3 || f.ctrl.AcceptedBids() != 3 {
		t.Fatalf("bids=%d accepted=%d, want 3/3", f.ctrl.Bids(), f.ctrl.AcceptedBids())
	}
	// Only 5 of the committed 10 kWh fit: 20 of 40 kW delivered.
	if !approx(f.ctrl.ImbalanceKW(), 20) {
		t.Fatalf("imbalance %v kW want 20", f.ctrl.ImbalanceKW())
	}
	if !approx(f.ctrl.TotalChargedKWh(), 5) {
		t.Fatalf("total charged %v kWh want 5", f.ctrl.TotalChargedKWh())
	}
	if !approx(f.pool.Level(), 5) {
		t.Fatalf("pool level %v want 5", f.pool.Level())
	}
	// Credited at the 40 EUR/MWh clearing price, not the 60 EUR/MWh bid.
	if !approx(f.acct.Balance(), 5.0/1000*40) {
		t.Fatalf("balance %v EUR want 0.2", f.acct.Balance())
	}
}

// Intraday settlements are energy purchases: the account is debited and no
// imbalance accrues when the pool absorbs the full commitment.
func TestIntradaySettlementDebitsAccount(t *testing.T) {
	pred := prediction.MockEngine{
		Prices:     map[model.MarketKind]float64{model.MarketIntraday: 45},
		CapacityKW: 40,
	}
	f := newFixture(t, "intraday", pred, 20, 50)
	f.env.Process("controller", f.ctrl.Run)
	f.env.Run(t0.Add(30 * time.Minute))

	if f.ctrl.AcceptedBids() != 3 {
		t.Fatalf("accepted %d bids, want 3", f.ctrl.AcceptedBids())
	}
	if f.ctrl.ImbalanceKW() != 0 {
		t.Fatalf("imbalance %v want 0", f.ctrl.ImbalanceKW())
	}
	if !approx(f.ctrl.TotalChargedKWh(), 10) {
		t.Fatalf("total charged %v kWh want 10", f.ctrl.TotalChargedKWh())
	}
	if !approx(f.acct.Balance(), -10.0/1000*50) {
		t.Fatalf("balance %v EUR want -0.5", f.acct.Balance())
	}
}

// The regular strategy never touches the markets.
func TestRegularStrategyPlacesNoBids(t *testing.T) {
	pred := prediction.MockEngine{
		Prices:     map[model.MarketKind]float64{model.MarketIntraday: 5, model.MarketBalancing: 5},
		CapacityKW: 40,
	}
	f := newFixture(t, "regular", pred, 20, 10)
	f.env.Process("controller", f.ctrl.Run)
	f.env.Run(t0.Add(time.Hour))

	if f.ctrl.Bids() != 0 {
		t.Fatalf("placed %d bids, want 0", f.ctrl.Bids())
	}
	if len(f.intraday.Commitments()) != 0 || len(f.balancing.Commitments()) != 0 {
		t.Fatal("markets hold commitments under the regular strategy")
	}
	if f.acct.Balance() != 0 {
		t.Fatalf("balance %v want 0", f.acct.Balance())
	}
}

// EnergyCharged bills regular charging at the industry tariff.
func TestEnergyChargedBillsTariff(t *testing.T) {
	f := newFixture(t, "regular", prediction.MockEngine{}, 20, 10)
	f.ctrl.EnergyCharged("ev1", 100, t0)
	if !approx(f.ctrl.TotalChargedKWh(), 100) {
		t.Fatalf("total charged %v want 100", f.ctrl.TotalChargedKWh())
	}
	if !approx(f.acct.Balance(), -19) {
		t.Fatalf("balance %v EUR want -19", f.acct.Balance())
	}
	f.ctrl.EnergyCharged("ev1", 0, t0)
	f.ctrl.EnergyCharged("ev1", -3, t0)
	if !approx(f.ctrl.TotalChargedKWh(), 100) {
		t.Fatal("zero or negative charge mutated the totals")
	}
}

// Outstanding commitments yield a per-vehicle reservation once the fleet is
// wired in.
func TestReservedKWhSpreadsPendingOverFleet(t *testing.T) {
	pred := prediction.MockEngine{
		Prices:     map[model.MarketKind]float64{model.MarketBalancing: 50},
		CapacityKW: 40,
	}
	f := newFixture(t, "balancing", pred, 5, 40)
	fl, err := fleet.New(f.env, f.pool, fleet.Config{
		BatteryCapacityKWh: 17.6, MaxRangeKM: 160, ChargingPowerKW: 3.6, RefuseRentals: true,
	}, f.ctrl, f.ctrl.ReservedKWh, logger.NopLogger{})
	if err != nil {
		t.Fatal(err)
	}
	future := t0.Add(2 * time.Hour)
	trips := []model.Trip{
		{ID: "t1", VehicleID: "ev1", Start: future, End: future.Add(time.Hour), DistanceKM: 10},
		{ID: "t2", VehicleID: "ev2", Start: future, End: future.Add(time.Hour), DistanceKM: 10},
	}
	if err := fl.Start(trips); err != nil {
		t.Fatal(err)
	}
	f.ctrl.SetFleet(fl)
	f.env.Process("controller", f.ctrl.Run)
	f.env.Run(t0.Add(30 * time.Minute))

	// Slots +30m and +45m are still pending: 2 x 10 kWh over 2 vehicles.
	if !approx(f.ctrl.ReservedKWh(), 10) {
		t.Fatalf("reserved %v kWh per vehicle, want 10", f.ctrl.ReservedKWh())
	}
}
