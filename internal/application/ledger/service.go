package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Metrics receives counters from the ledger service
type Metrics interface {
	// OperationCommitted is called after a unit of work is swapped in
	OperationCommitted(ctx context.Context, op string, elapsed time.Duration)
	// OperationRejected is called when a unit of work is discarded
	OperationRejected(ctx context.Context, op, code string)
	// WriteThroughFailed is called when a collection could not be saved
	WriteThroughFailed(ctx context.Context, collection string)
}

type noopMetrics struct{}

func (noopMetrics) OperationCommitted(context.Context, string, time.Duration) {}
func (noopMetrics) OperationRejected(context.Context, string, string)         {}
func (noopMetrics) WriteThroughFailed(context.Context, string)                {}

// Service owns the stock, sales, purchase and supplier ledgers of one store.
// All mutations run as a unit of work: copies are changed, then swapped in
// under the service mutex, then written through to the record store.
type Service struct {
	mu    sync.Mutex
	st    *state
	store RecordStore

	publisher shared.EventPublisher
	logger    *zap.Logger
	metrics   Metrics
	clock     func() time.Time

	writeMu sync.Mutex
	seq     uint64
	written map[string]uint64
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithEventPublisher sets where committed domain events go
func WithEventPublisher(p shared.EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService creates an empty ledger backed by store. Call Load to read
// what the store already holds.
func NewService(store RecordStore, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		st:      newState(),
		store:   store,
		logger:  logger,
		metrics: noopMetrics{},
		clock:   time.Now,
		written: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Load replaces the in-memory ledger with the contents of the record store.
// Records that cannot be decoded are skipped, and a collection whose stored
// payload is not a JSON array loads empty and is listed in NotArrays. Other
// store errors abort the load.
func (s *Service) Load(ctx context.Context) (*RestoreResult, error) {
	result := newRestoreResult()
	if s.store == nil {
		return result, nil
	}
	records := make(map[string][]json.RawMessage, len(Collections))
	for _, name := range Collections {
		list, err := s.store.Load(ctx, name)
		if errors.Is(err, shared.ErrCorruptCollection) {
			s.logger.Warn("stored collection is corrupt, loading it empty",
				zap.String("collection", name),
				zap.Error(err),
			)
			result.NotArrays = append(result.NotArrays, name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		records[name] = list
	}

	next := decodeState(records, s.now(), result)

	s.mu.Lock()
	s.st = next
	s.mu.Unlock()

	s.logger.Info("ledger loaded",
		zap.Int("items", len(next.items.rows)),
		zap.Int("sales", len(next.sales.rows)),
		zap.Int("purchases", len(next.purchases.rows)),
		zap.Int("suppliers", len(next.suppliers.rows)),
		zap.Int("skipped", result.Skipped()),
		zap.Strings("not_arrays", result.NotArrays),
	)
	return result, nil
}

func (s *Service) now() int64 {
	return s.clock().UnixMilli()
}

type pendingWrite struct {
	collection string
	seq        uint64
	records    []json.RawMessage
}

// execute runs fn as one unit of work. If fn fails nothing it changed is
// kept. Write-through failures are logged and do not fail the operation.
func (s *Service) execute(ctx context.Context, op string, fn func(t *tx) error) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", op)
	defer span.End()
	started := s.clock()

	s.mu.Lock()
	t := s.st.begin(started.UnixMilli())
	if err := fn(t); err != nil {
		s.mu.Unlock()
		telemetry.RecordError(span, err)
		s.metrics.OperationRejected(ctx, op, errorCode(err))
		s.logger.Debug("ledger operation rejected", zap.String("op", op), zap.Error(err))
		return err
	}
	events := t.events()
	dirty := t.dirtyCollections()
	t.commit()

	writes := make([]pendingWrite, 0, len(dirty))
	for _, name := range dirty {
		records, err := s.st.encode(name)
		if err != nil {
			// The state is already swapped in; the next change rewrites it.
			s.logger.Error("encode collection", zap.String("collection", name), zap.Error(err))
			s.metrics.WriteThroughFailed(ctx, name)
			continue
		}
		s.seq++
		writes = append(writes, pendingWrite{collection: name, seq: s.seq, records: records})
	}
	s.mu.Unlock()

	s.writeThrough(ctx, writes)
	s.publish(ctx, events)

	telemetry.SetOK(span)
	s.metrics.OperationCommitted(ctx, op, s.clock().Sub(started))
	s.logger.Info("ledger operation committed",
		zap.String("op", op),
		zap.Strings("collections", dirty),
		zap.Int("events", len(events)),
	)
	return nil
}

// read runs fn against the committed state under the lock
func (s *Service) read(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

// writeThrough saves full collections. A snapshot older than one already
// written is dropped, since the newer one contains it.
func (s *Service) writeThrough(ctx context.Context, writes []pendingWrite) {
	if s.store == nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	for _, w := range writes {
		if w.seq <= s.written[w.collection] {
			continue
		}
		if err := s.store.SaveAll(ctx, w.collection, w.records); err != nil {
			s.logger.Error("write-through failed",
				zap.String("collection", w.collection),
				zap.Int("records", len(w.records)),
				zap.Error(err),
			)
			s.metrics.WriteThroughFailed(ctx, w.collection)
			continue
		}
		s.written[w.collection] = w.seq
	}
}

func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("publish domain events", zap.Int("events", len(events)), zap.Error(err))
	}
}

func errorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL"
}
