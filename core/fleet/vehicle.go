package fleet

import (
	"time"

	"github.com/xzhou2018/FleetSim/core/model"
	"github.com/xzhou2018/FleetSim/core/sim"
)

// Vehicle is one simulated EV. Its lifecycle process replays the vehicle's
// historical trips and charges between them. All mutation happens from within
// that process.
type Vehicle struct {
	ID         string
	fleet      *Fleet
	state      model.VehicleState
	batteryKWh float64
	trips      []model.Trip
}

// State returns the vehicle's current lifecycle state.
func (v *Vehicle) State() model.VehicleState { return v.state }

// BatteryKWh returns the current battery level.
func (v *Vehicle) BatteryKWh() float64 { return v.batteryKWh }

func (v *Vehicle) setState(s model.VehicleState) {
	v.fleet.counts[v.state]--
	v.state = s
	v.fleet.counts[s]++
}

func (v *Vehicle) run(p *sim.Proc) error {
	for _, trip := range v.trips {
		if err := v.idleUntil(p, trip.Start); err != nil {
			return err
		}
		if err := v.rent(p, trip); err != nil {
			return err
		}
	}
	return nil
}

// idleUntil parks the vehicle until the given time, charging first when the
// battery is below full. The charging session is sized to end at battery-full
// or at the next trip, whichever comes first, so a rental never preempts it.
func (v *Vehicle) idleUntil(p *sim.Proc, until time.Time) error {
	now := v.fleet.env.Now()
	if !until.After(now) {
		return nil
	}
	cfg := v.fleet.cfg
	if v.batteryKWh < cfg.BatteryCapacityKWh {
		needHours := (cfg.BatteryCapacityKWh - v.batteryKWh) / cfg.ChargingPowerKW
		windowHours := until.Sub(now).Hours()
		hours := needHours
		if windowHours < hours {
			hours = windowHours
		}
		v.setState(model.StateCharging)
		if err := p.Sleep(time.Duration(hours * float64(time.Hour))); err != nil {
			return err
		}
		gained := cfg.ChargingPowerKW * hours
		if room := cfg.BatteryCapacityKWh - v.batteryKWh; gained > room {
			gained = room
		}
		v.batteryKWh += gained
		if err := v.fleet.pool.Put(p, gained); err != nil {
			return err
		}
		v.fleet.biller.EnergyCharged(v.ID, gained, v.fleet.env.Now())
		v.setState(model.StateIdle)
	}
	return p.SleepUntil(until)
}

// rent replays one trip. With refuse-rentals enabled a vehicle that cannot
// cover the trip energy on top of the commitment reserve refuses the rental
// and stays idle. Otherwise the trip proceeds; a battery that empties mid-trip
// clamps at zero and the shortfall is reported on the fleet.
func (v *Vehicle) rent(p *sim.Proc, trip model.Trip) error {
	cfg := v.fleet.cfg
	need := trip.DistanceKM / cfg.MaxRangeKM * cfg.BatteryCapacityKWh
	if cfg.RefuseRentals {
		var reserve float64
		if v.fleet.reserve != nil {
			reserve = v.fleet.reserve()
		}
		if v.batteryKWh-need < reserve {
			v.fleet.refused++
			v.fleet.log.Infof("%s refuses trip %s: battery %.2f kWh cannot cover %.2f kWh plus %.2f kWh reserve",
				v.ID, trip.ID, v.batteryKWh, need, reserve)
			return nil
		}
	}
	drain := need
	var short float64
	if drain > v.batteryKWh {
		short = drain - v.batteryKWh
		drain = v.batteryKWh
	}
	v.setState(model.StateRenting)
	if err := p.SleepUntil(trip.End); err != nil {
		return err
	}
	v.batteryKWh -= drain
	// The pool mirrors fleet battery flows; controller deliveries may have
	// drained it below the battery sum, so cap the withdrawal at the level
	// snapshot to keep the rental from blocking.
	take := drain
	if lvl := v.fleet.pool.Level(); take > lvl {
		take = lvl
	}
	if err := v.fleet.pool.Get(p, take); err != nil {
		return err
	}
	if short > 0 {
		v.fleet.shortfallKWh += short
		v.fleet.log.Warnf("trip %s: %s ran out of charge, %.2f kWh unfulfilled", trip.ID, v.ID, short)
	}
	v.setState(model.StateIdle)
	return nil
}
