// Package data reads the historical datasets the simulation replays: trips,
// intraday and balancing clearing prices, and mobility-demand capacity
// records. The ETL pipeline that produces these files is a separate concern;
// this package only defines the reading contract.
package data

import (
	"fmt"
	"os"
	"time"

	"github.com/xzhou2018/FleetSim/core/model"
)

// Dataset bundles everything a simulation run replays.
type Dataset struct {
	Trips           []model.Trip
	IntradayPrices  []model.PriceRecord
	BalancingPrices []model.PriceRecord
	Capacity        []model.CapacityRecord
}

// Config names the dataset files.
type Config struct {
	TripsPath           string `json:"trips" yaml:"trips"`
	IntradayPricesPath  string `json:"intraday_prices" yaml:"intraday_prices"`
	BalancingPricesPath string `json:"balancing_prices" yaml:"balancing_prices"`
	CapacityPath        string `json:"capacity" yaml:"capacity"`
}

// Load reads all four datasets.
func Load(cfg Config) (*Dataset, error) {
	ds := &Dataset{}
	var err error
	if ds.Trips, err = loadTrips(cfg.TripsPath); err != nil {
		return nil, err
	}
	if ds.IntradayPrices, err = loadPrices(cfg.IntradayPricesPath); err != nil {
		return nil, err
	}
	if ds.BalancingPrices, err = loadPrices(cfg.BalancingPricesPath); err != nil {
		return nil, err
	}
	if ds.Capacity, err = loadCapacity(cfg.CapacityPath); err != nil {
		return nil, err
	}
	if len(ds.Trips) == 0 {
		return nil, fmt.Errorf("data: no trips in %s", cfg.TripsPath)
	}
	return ds, nil
}

func loadTrips(path string) ([]model.Trip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("data: open trips: %w", err)
	}
	defer f.Close()
	return ReadTrips(f)
}

func loadPrices(path string) ([]model.PriceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("data: open prices: %w", err)
	}
	defer f.Close()
	return ReadPrices(f)
}

func loadCapacity(path string) ([]model.CapacityRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("data: open capacity: %w", err)
	}
	defer f.Close()
	return ReadCapacity(f)
}

// Start returns the earliest trip start: the simulation clock starts there.
func (d *Dataset) Start() time.Time {
	var start time.Time
	for _, t := range d.Trips {
		if start.IsZero() || t.Start.Before(start) {
			start = t.Start
		}
	}
	return start
}

// End returns the horizon: the latest trip end in the data.
func (d *Dataset) End() time.Time {
	var end time.Time
	for _, t := range d.Trips {
		if t.End.After(end) {
			end = t.End
		}
	}
	return end
}

// FleetSize returns the number of distinct vehicles in the trip data.
func (d *Dataset) FleetSize() int {
	seen := make(map[string]struct{})
	for _, t := range d.Trips {
		seen[t.VehicleID] = struct{}{}
	}
	return len(seen)
}
