// Package fleet runs the vehicle lifecycle processes: trip replay, charging
// sessions and the rental/commitment conflict when refuse-rentals is enabled.
package fleet

import (
	"fmt"
	"sort"
	"time"

	"github.com/xzhou2018/FleetSim/core/energy"
	"github.com/xzhou2018/FleetSim/core/logger"
	"github.com/xzhou2018/FleetSim/core/model"
	"github.com/xzhou2018/FleetSim/core/sim"
)

// Config holds the physical vehicle parameters shared by the whole fleet.
type Config struct {
	BatteryCapacityKWh float64
	MaxRangeKM         float64
	ChargingPowerKW    float64
	RefuseRentals      bool
}

// Validate checks the physical parameters.
func (c Config) Validate() error {
	if c.BatteryCapacityKWh <= 0 {
		return fmt.Errorf("fleet: battery capacity must be positive, got %v", c.BatteryCapacityKWh)
	}
	if c.MaxRangeKM <= 0 {
		return fmt.Errorf("fleet: max range must be positive, got %v", c.MaxRangeKM)
	}
	if c.ChargingPowerKW <= 0 {
		return fmt.Errorf("fleet: charging power must be positive, got %v", c.ChargingPowerKW)
	}
	return nil
}

// Biller is notified synchronously whenever a vehicle draws grid energy into
// its battery. The controller implements it to debit the account and keep the
// charged-energy totals.
type Biller interface {
	EnergyCharged(vehicleID string, kwh float64, t time.Time)
}

// ReserveFunc returns the energy in kWh each vehicle must hold back to honor
// outstanding market commitments.
type ReserveFunc func() float64

// Fleet owns the vehicles and the aggregate lifecycle counters.
type Fleet struct {
	env     *sim.Environment
	pool    *energy.Pool
	cfg     Config
	biller  Biller
	reserve ReserveFunc
	log     logger.Logger

	vehicles     []*Vehicle
	counts       [3]int // indexed by model.VehicleState
	refused      int
	shortfallKWh float64
}

// New creates an empty fleet. Vehicles are created by Start from the trip
// data.
func New(env *sim.Environment, pool *energy.Pool, cfg Config, biller Biller, reserve ReserveFunc, log logger.Logger) (*Fleet, error) {
	if env == nil || pool == nil {
		return nil, fmt.Errorf("fleet: nil environment or pool")
	}
	if biller == nil {
		return nil, fmt.Errorf("fleet: nil biller")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		return nil, fmt.Errorf("fleet: nil logger")
	}
	return &Fleet{env: env, pool: pool, cfg: cfg, biller: biller, reserve: reserve, log: log}, nil
}

// Start creates one vehicle per distinct vehicle id in the trip data and
// registers its lifecycle process. Vehicles start idle with a full battery.
func (f *Fleet) Start(trips []model.Trip) error {
	byVehicle := make(map[string][]model.Trip)
	var order []string
	for _, t := range trips {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, seen := byVehicle[t.VehicleID]; !seen {
			order = append(order, t.VehicleID)
		}
		byVehicle[t.VehicleID] = append(byVehicle[t.VehicleID], t)
	}
	for _, id := range order {
		vt := byVehicle[id]
		sort.Slice(vt, func(i, j int) bool { return vt[i].Start.Before(vt[j].Start) })
		v := &Vehicle{
			ID:         id,
			fleet:      f,
			state:      model.StateIdle,
			batteryKWh: f.cfg.BatteryCapacityKWh,
			trips:      vt,
		}
		f.vehicles = append(f.vehicles, v)
		f.counts[model.StateIdle]++
		f.env.Process("vehicle-"+id, v.run)
	}
	return nil
}

// Size returns the number of vehicles.
func (f *Fleet) Size() int { return len(f.vehicles) }

// Vehicles returns the fleet's vehicles in creation order.
func (f *Fleet) Vehicles() []*Vehicle { return f.vehicles }

// IdleCount returns the number of idle vehicles.
func (f *Fleet) IdleCount() int { return f.counts[model.StateIdle] }

// ChargingCount returns the number of charging vehicles.
func (f *Fleet) ChargingCount() int { return f.counts[model.StateCharging] }

// RentingCount returns the number of rented vehicles.
func (f *Fleet) RentingCount() int { return f.counts[model.StateRenting] }

// Refused returns how many rentals were refused to protect commitments.
func (f *Fleet) Refused() int { return f.refused }

// ShortfallKWh returns the energy rentals demanded beyond what batteries
// held.
func (f *Fleet) ShortfallKWh() float64 { return f.shortfallKWh }
