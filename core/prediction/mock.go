package prediction

import (
	"time"

	"github.com/xzhou2018/FleetSim/core/model"
)

// MockEngine returns fixed forecasts for tests.
type MockEngine struct {
	Prices     map[model.MarketKind]float64
	CapacityKW float64
	Err        error
}

// PredictClearingPrice returns the configured price for the market.
func (m MockEngine) PredictClearingPrice(kind model.MarketKind, _ time.Time) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Prices[kind], nil
}

// PredictCapacity returns the configured capacity.
func (m MockEngine) PredictCapacity(time.Time) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.CapacityKW, nil
}
