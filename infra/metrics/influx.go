package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/xzhou2018/FleetSim/core/logger"
	coremetrics "github.com/xzhou2018/FleetSim/core/metrics"
)

// InfluxSink writes simulation events to an InfluxDB instance. Points are
// timestamped with simulated time so a run can be charted on the simulated
// axis.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string, log logger.Logger) *InfluxSink {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      log,
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// when the health check fails, so a missing database never blocks a run.
func NewInfluxSinkWithFallback(url, token, org, bucket string, log logger.Logger) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket, log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			log.Errorf("influx health check error: %v", err)
		} else {
			log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordCharge writes a charge event point.
func (s *InfluxSink) RecordCharge(ev coremetrics.ChargeEvent) error {
	p := write.NewPointWithMeasurement("charge_event").
		AddTag("vehicle_id", ev.VehicleID).
		AddTag("source", ev.Source).
		AddField("energy_kwh", ev.EnergyKWh).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordBid writes a bid outcome point.
func (s *InfluxSink) RecordBid(ev coremetrics.BidEvent) error {
	p := write.NewPointWithMeasurement("bid_event").
		AddTag("market", ev.Market.String()).
		AddTag("accepted", strconv.FormatBool(ev.Accepted)).
		AddField("price_eur_mwh", ev.PriceEURMWh).
		AddField("quantity_kw", ev.QuantityKW).
		AddField("slot", ev.Slot.Unix()).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordSettlement writes a settlement point.
func (s *InfluxSink) RecordSettlement(ev coremetrics.SettlementEvent) error {
	p := write.NewPointWithMeasurement("settlement_event").
		AddTag("market", ev.Commitment.Market.String()).
		AddTag("commitment_id", ev.Commitment.ID).
		AddField("committed_kw", ev.Commitment.QuantityKW).
		AddField("delivered_kw", ev.DeliveredKW).
		AddField("shortfall_kw", ev.ShortfallKW).
		AddField("amount_eur", ev.AmountEUR).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordPoolSample writes a pool level point.
func (s *InfluxSink) RecordPoolSample(ev coremetrics.PoolSample) error {
	p := write.NewPointWithMeasurement("pool_level").
		AddField("level_kwh", ev.LevelKWh).
		AddField("capacity_kwh", ev.CapacityKWh).
		SetTime(ev.Time)
	return s.write(p)
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		if s.log != nil {
			s.log.Errorf("influx write: %v", err)
		}
		return err
	}
	return nil
}
