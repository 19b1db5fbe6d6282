package metrics

import (
	"context"

	coremetrics "github.com/xzhou2018/FleetSim/core/metrics"
	"github.com/xzhou2018/FleetSim/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and forwards simulation
// events to the sink. It stops when the context is canceled or the bus
// closes.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case coremetrics.ChargeEvent:
					_ = sink.RecordCharge(e)
				case coremetrics.BidEvent:
					if r, ok := sink.(coremetrics.BidRecorder); ok {
						_ = r.RecordBid(e)
					}
				case coremetrics.SettlementEvent:
					if r, ok := sink.(coremetrics.SettlementRecorder); ok {
						_ = r.RecordSettlement(e)
					}
				case coremetrics.PoolSample:
					if r, ok := sink.(coremetrics.PoolRecorder); ok {
						_ = r.RecordPoolSample(e)
					}
				}
			}
		}
	}()
}
