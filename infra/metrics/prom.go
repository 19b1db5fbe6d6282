package metrics

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/xzhou2018/FleetSim/core/metrics"
)

// PromSink records simulation events in Prometheus metrics.
type PromSink struct {
	charged   *prometheus.CounterVec
	bids      *prometheus.CounterVec
	imbalance prometheus.Counter
	poolLevel prometheus.Gauge
}

// NewPromSink registers the simulation metrics on the default registerer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer. A nil
// registerer defaults to the global one.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	charged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetsim_charged_kwh_total",
		Help: "Total energy charged into the fleet in kWh",
	}, []string{"source"})
	bids := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetsim_bids_total",
		Help: "Total market bids placed",
	}, []string{"market", "accepted"})
	imbalance := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fleetsim_imbalance_kw_total",
		Help: "Accumulated commitment shortfall in kW",
	})
	poolLevel := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleetsim_pool_level_kwh",
		Help: "Current energy pool level in kWh",
	})

	s := &PromSink{charged: charged, bids: bids, imbalance: imbalance, poolLevel: poolLevel}
	for _, c := range []prometheus.Collector{charged, bids, imbalance, poolLevel} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return s, nil
}

// RecordCharge adds the charged energy to the per-source counter.
func (s *PromSink) RecordCharge(ev coremetrics.ChargeEvent) error {
	s.charged.WithLabelValues(ev.Source).Add(ev.EnergyKWh)
	return nil
}

// RecordBid increments the bid counter.
func (s *PromSink) RecordBid(ev coremetrics.BidEvent) error {
	s.bids.WithLabelValues(ev.Market.String(), strconv.FormatBool(ev.Accepted)).Inc()
	return nil
}

// RecordSettlement adds the shortfall to the imbalance counter.
func (s *PromSink) RecordSettlement(ev coremetrics.SettlementEvent) error {
	if ev.ShortfallKW > 0 {
		s.imbalance.Add(ev.ShortfallKW)
	}
	return nil
}

// RecordPoolSample sets the pool level gauge.
func (s *PromSink) RecordPoolSample(ev coremetrics.PoolSample) error {
	s.poolLevel.Set(ev.LevelKWh)
	return nil
}

// StartPromServer exposes /metrics on the given port and blocks.
func StartPromServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
