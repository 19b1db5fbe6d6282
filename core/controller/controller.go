// Package controller orchestrates the charging strategy: it evaluates the
// strategy on a fixed interval, places market bids, settles commitments
// against what the energy pool could actually absorb, and tracks imbalance.
package controller

import (
	"fmt"
	"time"

	"github.com/xzhou2018/FleetSim/core/account"
	"github.com/xzhou2018/FleetSim/core/energy"
	"github.com/xzhou2018/FleetSim/core/fleet"
	"github.com/xzhou2018/FleetSim/core/logger"
	"github.com/xzhou2018/FleetSim/core/market"
	"github.com/xzhou2018/FleetSim/core/metrics"
	"github.com/xzhou2018/FleetSim/core/model"
	"github.com/xzhou2018/FleetSim/core/prediction"
	"github.com/xzhou2018/FleetSim/core/sim"
	"github.com/xzhou2018/FleetSim/core/strategy"
	"github.com/xzhou2018/FleetSim/internal/eventbus"
)

// Config holds controller parameters.
type Config struct {
	// EvaluateEvery is the strategy evaluation interval. Defaults to the
	// capacity prediction granularity (5 minutes).
	EvaluateEvery time.Duration
	// TariffEURMWh is the industry tariff regular charging is billed at.
	TariffEURMWh float64
	// PriceMarginEURMWh is added on top of predicted clearing prices when
	// bidding.
	PriceMarginEURMWh float64
}

// Controller owns the strategy, the markets and the aggregate VPP counters.
type Controller struct {
	env       *sim.Environment
	strategy  strategy.Strategy
	intraday  *market.Market
	balancing *market.Market
	predictor prediction.Engine
	pool      *energy.Pool
	fleet     *fleet.Fleet
	account   *account.Account
	bus       eventbus.EventBus
	log       logger.Logger
	cfg       Config

	pending         []model.Commitment
	imbalanceKW     float64
	totalChargedKWh float64
	bids            int
	accepted        int
}

// New creates a controller with zeroed counters. The fleet reference is set
// later via SetFleet because fleet construction needs the controller's
// reservation function.
func New(env *sim.Environment, strat strategy.Strategy, intraday, balancing *market.Market, pred prediction.Engine, pool *energy.Pool, acct *account.Account, bus eventbus.EventBus, log logger.Logger, cfg Config) (*Controller, error) {
	if env == nil || strat == nil || intraday == nil || balancing == nil || pred == nil || pool == nil || acct == nil {
		return nil, fmt.Errorf("controller: nil parameter provided to New")
	}
	if log == nil {
		return nil, fmt.Errorf("controller: nil logger")
	}
	if cfg.EvaluateEvery <= 0 {
		cfg.EvaluateEvery = market.CapacitySlotDuration
	}
	if cfg.TariffEURMWh <= 0 {
		return nil, fmt.Errorf("controller: tariff must be positive, got %v", cfg.TariffEURMWh)
	}
	return &Controller{
		env:       env,
		strategy:  strat,
		intraday:  intraday,
		balancing: balancing,
		predictor: pred,
		pool:      pool,
		account:   acct,
		bus:       bus,
		log:       log,
		cfg:       cfg,
	}, nil
}

// SetFleet wires the fleet after construction.
func (c *Controller) SetFleet(f *fleet.Fleet) { c.fleet = f }

// TotalChargedKWh returns the energy charged into the fleet so far.
func (c *Controller) TotalChargedKWh() float64 { return c.totalChargedKWh }

// ImbalanceKW returns the accumulated commitment shortfall in kW.
func (c *Controller) ImbalanceKW() float64 { return c.imbalanceKW }

// Bids returns how many bids were placed.
func (c *Controller) Bids() int { return c.bids }

// AcceptedBids returns how many bids cleared.
func (c *Controller) AcceptedBids() int { return c.accepted }

// Strategy returns the active charging strategy.
func (c *Controller) Strategy() strategy.Strategy { return c.strategy }

// PredictClearingPrice forecasts the clearing price for a future timeslot.
func (c *Controller) PredictClearingPrice(kind model.MarketKind, ts time.Time) (float64, error) {
	return c.predictor.PredictClearingPrice(kind, ts)
}

// PredictCapacity forecasts the aggregate charging capacity the fleet can
// offer at ts.
func (c *Controller) PredictCapacity(ts time.Time) (float64, error) {
	return c.predictor.PredictCapacity(ts)
}

// ReservedKWh returns the per-vehicle energy reservation needed to honor the
// outstanding commitments. Used by the refuse-rentals policy.
func (c *Controller) ReservedKWh() float64 {
	if c.fleet == nil || c.fleet.Size() == 0 {
		return 0
	}
	var total float64
	for _, com := range c.pending {
		total += com.EnergyKWh(c.marketFor(com.Market).SlotDuration())
	}
	return total / float64(c.fleet.Size())
}

// EnergyCharged implements fleet.Biller: regular charging is billed at the
// industry tariff.
func (c *Controller) EnergyCharged(vehicleID string, kwh float64, t time.Time) {
	if kwh <= 0 {
		return
	}
	c.totalChargedKWh += kwh
	c.account.Debit(kwh/1000*c.cfg.TariffEURMWh, "charging at industry tariff")
	c.publish(metrics.ChargeEvent{VehicleID: vehicleID, EnergyKWh: kwh, Source: "tariff", Time: t})
}

// Run is the controller's periodic evaluation process. It settles due
// commitments, evaluates the strategy and places bids until the environment
// shuts down.
func (c *Controller) Run(p *sim.Proc) error {
	for {
		if err := c.settleDue(p); err != nil {
			return err
		}
		c.evaluate()
		if err := p.Sleep(c.cfg.EvaluateEvery); err != nil {
			return err
		}
	}
}

func (c *Controller) evaluate() {
	now := c.env.Now()
	in := strategy.Input{
		Now:             now,
		PoolLevelKWh:    c.pool.Level(),
		PoolCapacityKWh: c.pool.Capacity(),
		TariffEURMWh:    c.cfg.TariffEURMWh,
	}
	if c.fleet != nil {
		in.IdleVehicles = c.fleet.IdleCount()
		in.ChargingVehicles = c.fleet.ChargingCount()
	}
	slot := now.Truncate(market.PriceSlotDuration).Add(market.PriceSlotDuration)
	in.Intraday = c.forecast(model.MarketIntraday, slot)
	in.Balancing = c.forecast(model.MarketBalancing, slot)

	dec := c.strategy.Evaluate(in)
	if dec.Bid != nil {
		c.placeBid(*dec.Bid)
	}
}

func (c *Controller) forecast(kind model.MarketKind, slot time.Time) strategy.Forecast {
	price, err := c.predictor.PredictClearingPrice(kind, slot)
	if err != nil {
		c.log.Debugf("no %s price forecast for %v: %v", kind, slot, err)
		return strategy.Forecast{}
	}
	capKW, err := c.predictor.PredictCapacity(slot)
	if err != nil {
		c.log.Debugf("no capacity forecast for %v: %v", slot, err)
		return strategy.Forecast{}
	}
	return strategy.Forecast{Slot: slot, PriceEURMWh: price, CapacityKW: capKW, Valid: true}
}

func (c *Controller) placeBid(b strategy.Bid) {
	m := c.marketFor(b.Market)
	if _, taken := m.Commitment(b.Slot); taken {
		// Already won this slot on a previous evaluation.
		return
	}
	c.bids++
	com, ok, err := m.Bid(b.Slot, b.PriceEURMWh, b.QuantityKW)
	now := c.env.Now()
	if err != nil {
		c.log.Errorf("bid on %s for %v failed: %v", b.Market, b.Slot, err)
		return
	}
	c.publish(metrics.BidEvent{
		Market:      b.Market,
		Slot:        b.Slot,
		PriceEURMWh: b.PriceEURMWh,
		QuantityKW:  b.QuantityKW,
		Accepted:    ok,
		Time:        now,
	})
	if !ok {
		c.log.Debugf("bid on %s for %v rejected (%.2f EUR/MWh, %.2f kW)", b.Market, b.Slot, b.PriceEURMWh, b.QuantityKW)
		return
	}
	c.accepted++
	c.pending = append(c.pending, com)
	c.log.Infof("commitment won on %s: slot %v, %.2f kW at %.2f EUR/MWh", b.Market, com.Slot, com.QuantityKW, com.PriceEURMWh)
}

// settleDue resolves every pending commitment whose slot has elapsed. The
// delivered charging load is bounded by the pool headroom at settlement time;
// any shortfall is a sunk cost recorded as imbalance, never retried.
func (c *Controller) settleDue(p *sim.Proc) error {
	now := c.env.Now()
	remaining := c.pending[:0]
	for _, com := range c.pending {
		slotDur := c.marketFor(com.Market).SlotDuration()
		if com.Slot.Add(slotDur).After(now) {
			remaining = append(remaining, com)
			continue
		}
		if err := c.settle(p, com, slotDur); err != nil {
			return err
		}
	}
	c.pending = remaining
	return nil
}

func (c *Controller) settle(p *sim.Proc, com model.Commitment, slotDur time.Duration) error {
	energyKWh := com.EnergyKWh(slotDur)
	delivered := energyKWh
	if free := c.pool.Free(); delivered > free {
		delivered = free
	}
	if err := c.pool.Put(p, delivered); err != nil {
		return err
	}
	deliveredKW := delivered / slotDur.Hours()
	shortfallKW := com.QuantityKW - deliveredKW
	if shortfallKW > 0 {
		c.imbalanceKW += shortfallKW
		c.log.Warnf("commitment %s under-delivered: %.2f of %.2f kW, imbalance now %.2f kW",
			com.ID, deliveredKW, com.QuantityKW, c.imbalanceKW)
	}
	c.totalChargedKWh += delivered

	var amount float64
	switch com.Market {
	case model.MarketBalancing:
		// Activated balancing load is paid the activation price.
		amount = delivered / 1000 * com.PriceEURMWh
		c.account.Credit(amount, "balancing activation")
	default:
		// Intraday energy is bought at the clearing price.
		amount = -delivered / 1000 * com.PriceEURMWh
		c.account.Debit(-amount, "intraday energy purchase")
	}
	c.publish(metrics.SettlementEvent{
		Commitment:  com,
		DeliveredKW: deliveredKW,
		ShortfallKW: max(shortfallKW, 0),
		AmountEUR:   amount,
		Time:        c.env.Now(),
	})
	c.publish(metrics.ChargeEvent{EnergyKWh: delivered, Source: com.Market.String(), Time: c.env.Now()})
	return nil
}

func (c *Controller) marketFor(kind model.MarketKind) *market.Market {
	if kind == model.MarketBalancing {
		return c.balancing
	}
	return c.intraday
}

func (c *Controller) publish(ev eventbus.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}
