// Package simulation wires the fleet, the energy pool, the controller and the
// account together and drives the discrete-event scheduler over the
// historical data horizon.
package simulation

import (
	"fmt"
	"time"

	"github.com/xzhou2018/FleetSim/core/account"
	"github.com/xzhou2018/FleetSim/core/controller"
	"github.com/xzhou2018/FleetSim/core/energy"
	"github.com/xzhou2018/FleetSim/core/fleet"
	"github.com/xzhou2018/FleetSim/core/logger"
	"github.com/xzhou2018/FleetSim/core/market"
	"github.com/xzhou2018/FleetSim/core/metrics"
	"github.com/xzhou2018/FleetSim/core/model"
	"github.com/xzhou2018/FleetSim/core/prediction"
	"github.com/xzhou2018/FleetSim/core/sim"
	"github.com/xzhou2018/FleetSim/core/strategy"
	"github.com/xzhou2018/FleetSim/data"
	"github.com/xzhou2018/FleetSim/internal/eventbus"
)

// monitorInterval is how often the stats process samples the pool level.
const monitorInterval = 10 * time.Minute

// Simulation is the root that builds and starts every process of a run.
type Simulation struct {
	name    string
	cfg     Config
	ds      *data.Dataset
	env     *sim.Environment
	pool    *energy.Pool
	fleet   *fleet.Fleet
	ctrl    *controller.Controller
	account *account.Account
	bus     eventbus.EventBus
	log     logger.Logger
	horizon time.Time
}

// New builds a simulation from the configuration and datasets. The bus may be
// nil when no observer is interested in run events.
func New(cfg Config, ds *data.Dataset, bus eventbus.EventBus, log logger.Logger) (*Simulation, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ds == nil || len(ds.Trips) == 0 {
		return nil, fmt.Errorf("simulation: no trip data")
	}
	if log == nil {
		return nil, fmt.Errorf("simulation: nil logger")
	}

	fleetSize := cfg.FleetSize
	if fleetSize == 0 {
		fleetSize = ds.FleetSize()
	}

	env := sim.NewEnvironment(ds.Start(), log)
	pool, err := energy.NewPool(env, cfg.BatteryCapacityKWh*float64(fleetSize), log)
	if err != nil {
		return nil, err
	}
	acct := account.New(log)

	intraday, err := market.New(model.MarketIntraday, market.PriceSlotDuration, ds.IntradayPrices, log)
	if err != nil {
		return nil, err
	}
	balancing, err := market.New(model.MarketBalancing, market.PriceSlotDuration, ds.BalancingPrices, log)
	if err != nil {
		return nil, err
	}
	pred, err := prediction.NewHistoryEngine(ds.IntradayPrices, ds.BalancingPrices, ds.Capacity, cfg.ChargingSpeedKW, fleetSize)
	if err != nil {
		return nil, err
	}
	strat, err := strategy.New(cfg.Strategy, cfg.PriceMarginEURMWh)
	if err != nil {
		return nil, err
	}
	ctrl, err := controller.New(env, strat, intraday, balancing, pred, pool, acct, bus, log, controller.Config{
		TariffEURMWh:      cfg.TariffEURMWh,
		PriceMarginEURMWh: cfg.PriceMarginEURMWh,
	})
	if err != nil {
		return nil, err
	}
	flt, err := fleet.New(env, pool, fleet.Config{
		BatteryCapacityKWh: cfg.BatteryCapacityKWh,
		MaxRangeKM:         cfg.MaxRangeKM,
		ChargingPowerKW:    cfg.ChargingSpeedKW,
		RefuseRentals:      cfg.RefuseRentals,
	}, ctrl, ctrl.ReservedKWh, log)
	if err != nil {
		return nil, err
	}
	ctrl.SetFleet(flt)

	return &Simulation{
		name:    cfg.Name,
		cfg:     cfg,
		ds:      ds,
		env:     env,
		pool:    pool,
		fleet:   flt,
		ctrl:    ctrl,
		account: acct,
		bus:     bus,
		log:     log,
		horizon: ds.End(),
	}, nil
}

// Name returns the run name.
func (s *Simulation) Name() string { return s.name }

// Controller exposes the controller for ad-hoc prediction queries.
func (s *Simulation) Controller() *controller.Controller { return s.ctrl }

// Run registers every process and drains the scheduler up to the historical
// data horizon, then assembles the run result.
func (s *Simulation) Run() (model.Result, error) {
	wall := time.Now()
	s.log.Infof("simulation %s: %d vehicles, strategy %s, horizon %v",
		s.name, s.ds.FleetSize(), s.ctrl.Strategy().Name(), s.horizon)

	if err := s.fleet.Start(s.ds.Trips); err != nil {
		return model.Result{}, err
	}
	s.env.Process("controller", s.ctrl.Run)
	if s.cfg.Stats {
		s.env.Process("vpp-monitor", s.monitor)
	}

	s.env.Run(s.horizon)

	res := model.Result{
		Name:            s.name,
		TotalChargedKWh: s.ctrl.TotalChargedKWh(),
		ImbalanceKW:     s.ctrl.ImbalanceKW(),
		BalanceEUR:      s.account.Balance(),
		RefusedRentals:  s.fleet.Refused(),
		ShortfallKWh:    s.fleet.ShortfallKWh(),
		Bids:            s.ctrl.Bids(),
		AcceptedBids:    s.ctrl.AcceptedBids(),
		Elapsed:         time.Since(wall),
	}
	s.log.Infof("simulation %s done: charged %.2f kWh, imbalance %.2f kW, balance %.2f EUR (%v)",
		res.Name, res.TotalChargedKWh, res.ImbalanceKW, res.BalanceEUR, res.Elapsed)
	return res, nil
}

// monitor samples the pool level every 10 simulated minutes.
func (s *Simulation) monitor(p *sim.Proc) error {
	for {
		s.log.Infof("[%s] - vpp(%.2f/%.2f) capacity", s.env.Now().Format("2006-01-02 15:04"),
			s.pool.Level(), s.pool.Capacity())
		if s.bus != nil {
			s.bus.Publish(metrics.PoolSample{
				LevelKWh:    s.pool.Level(),
				CapacityKWh: s.pool.Capacity(),
				Time:        s.env.Now(),
			})
		}
		if err := p.Sleep(monitorInterval); err != nil {
			return err
		}
	}
}
