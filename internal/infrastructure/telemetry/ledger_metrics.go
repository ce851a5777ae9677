package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics records ledger operation outcomes as OTel instruments and,
// when a registry is given, as Prometheus series.
type LedgerMetrics struct {
	committed  *Counter
	rejected   *Counter
	writeFails *Counter
	duration   *Histogram
	prom       *PrometheusRegistry
}

// NewLedgerMetrics creates the ledger instruments on meter. prom may be nil.
func NewLedgerMetrics(meter metric.Meter, prom *PrometheusRegistry) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	committed, err := NewCounter(meter, "ledger_operations_committed_total", "Ledger operations committed", "{operation}")
	if err != nil {
		return nil, err
	}
	rejected, err := NewCounter(meter, "ledger_operations_rejected_total", "Ledger operations rejected by a domain rule", "{operation}")
	if err != nil {
		return nil, err
	}
	writeFails, err := NewCounter(meter, "ledger_write_through_failures_total", "Collection writes that failed after commit", "{write}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, "ledger_operation_duration_seconds", "Time from lock to commit", "s", OperationDurationBuckets)
	if err != nil {
		return nil, err
	}

	return &LedgerMetrics{
		committed:  committed,
		rejected:   rejected,
		writeFails: writeFails,
		duration:   duration,
		prom:       prom,
	}, nil
}

// OperationCommitted counts a committed operation and its latency
func (m *LedgerMetrics) OperationCommitted(ctx context.Context, op string, elapsed time.Duration) {
	m.committed.Inc(ctx, AttrOperation.String(op))
	m.duration.RecordDuration(ctx, elapsed, AttrOperation.String(op))
	if m.prom != nil {
		m.prom.ledgerOps.WithLabelValues(op, "committed").Inc()
		m.prom.ledgerDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	}
}

// OperationRejected counts an operation that left the ledger untouched
func (m *LedgerMetrics) OperationRejected(ctx context.Context, op, code string) {
	m.rejected.Inc(ctx, AttrOperation.String(op), AttrErrorCode.String(code))
	if m.prom != nil {
		m.prom.ledgerOps.WithLabelValues(op, "rejected").Inc()
		m.prom.ledgerRejections.WithLabelValues(op, code).Inc()
	}
}

// WriteThroughFailed counts a collection that could not be persisted
func (m *LedgerMetrics) WriteThroughFailed(ctx context.Context, collection string) {
	m.writeFails.Inc(ctx, AttrCollection.String(collection))
	if m.prom != nil {
		m.prom.writeFailures.WithLabelValues(collection).Inc()
	}
}
