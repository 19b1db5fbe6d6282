package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCharge forwards the event to all sinks, returning the first error.
func (m *MultiSink) RecordCharge(ev ChargeEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordCharge(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordBid forwards bid events to sinks that support them.
func (m *MultiSink) RecordBid(ev BidEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(BidRecorder); ok {
			if err := rec.RecordBid(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSettlement forwards settlement events to sinks that support them.
func (m *MultiSink) RecordSettlement(ev SettlementEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SettlementRecorder); ok {
			if err := rec.RecordSettlement(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordPoolSample forwards pool samples to sinks that support them.
func (m *MultiSink) RecordPoolSample(ev PoolSample) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(PoolRecorder); ok {
			if err := rec.RecordPoolSample(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
