package simulation

import (
	"fmt"
	"time"
)

// Config holds the run parameters of a simulation.
type Config struct {
	Name               string  `json:"name" yaml:"name"`
	FleetSize          int     `json:"fleet_size" yaml:"fleet_size"` // 0 derives the size from the trip data
	BatteryCapacityKWh float64 `json:"ev_capacity_kwh" yaml:"ev_capacity_kwh"`
	MaxRangeKM         float64 `json:"max_ev_range_km" yaml:"max_ev_range_km"`
	ChargingSpeedKW    float64 `json:"charging_speed_kw" yaml:"charging_speed_kw"`
	TariffEURMWh       float64 `json:"industry_tariff_eur_mwh" yaml:"industry_tariff_eur_mwh"`
	Strategy           string  `json:"charging_strategy" yaml:"charging_strategy"`
	PriceMarginEURMWh  float64 `json:"price_margin_eur_mwh" yaml:"price_margin_eur_mwh"`
	RefuseRentals      bool    `json:"refuse_rentals" yaml:"refuse_rentals"`
	Stats              bool    `json:"stats" yaml:"stats"`
}

// SetDefaults fills unset fields with the standard car2go fleet parameters.
func (c *Config) SetDefaults() {
	if c.Name == "" {
		c.Name = time.Now().Format("20060102-150405")
	}
	if c.BatteryCapacityKWh == 0 {
		c.BatteryCapacityKWh = 17.6
	}
	if c.MaxRangeKM == 0 {
		c.MaxRangeKM = 160
	}
	if c.ChargingSpeedKW == 0 {
		c.ChargingSpeedKW = 3.6
	}
	if c.TariffEURMWh == 0 {
		c.TariffEURMWh = 190
	}
	if c.Strategy == "" {
		c.Strategy = "regular"
	}
}

// Validate checks the physical and strategy parameters.
func (c Config) Validate() error {
	if c.BatteryCapacityKWh <= 0 {
		return fmt.Errorf("simulation: ev_capacity_kwh must be positive, got %v", c.BatteryCapacityKWh)
	}
	if c.MaxRangeKM <= 0 {
		return fmt.Errorf("simulation: max_ev_range_km must be positive, got %v", c.MaxRangeKM)
	}
	if c.ChargingSpeedKW <= 0 {
		return fmt.Errorf("simulation: charging_speed_kw must be positive, got %v", c.ChargingSpeedKW)
	}
	if c.TariffEURMWh <= 0 {
		return fmt.Errorf("simulation: industry_tariff_eur_mwh must be positive, got %v", c.TariffEURMWh)
	}
	if c.FleetSize < 0 {
		return fmt.Errorf("simulation: fleet_size must not be negative, got %d", c.FleetSize)
	}
	switch c.Strategy {
	case "regular", "balancing", "intraday":
	default:
		return fmt.Errorf("simulation: unknown charging_strategy %q", c.Strategy)
	}
	return nil
}
