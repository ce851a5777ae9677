// Package resilience guards the record store with a circuit breaker.
package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/config"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrStoreUnavailable is returned while the breaker is open or half-open and full
var ErrStoreUnavailable = errors.New("record store unavailable")

// StateReporter receives breaker state changes (0 closed, 1 half-open, 2 open)
type StateReporter interface {
	SetBreakerState(name string, state int)
}

// BreakerRecordStore wraps a record store with a gobreaker circuit breaker.
// Version conflicts and corrupt payloads count as successes: the store answered.
type BreakerRecordStore struct {
	next ledger.RecordStore
	cb   *gobreaker.CircuitBreaker
	name string
}

// NewBreakerRecordStore wraps next. reporter may be nil.
func NewBreakerRecordStore(next ledger.RecordStore, name string, cfg config.BreakerConfig, reporter StateReporter, logger *zap.Logger) *BreakerRecordStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, shared.ErrConcurrencyConflict) ||
				errors.Is(err, shared.ErrCorruptCollection) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if reporter != nil {
				reporter.SetBreakerState(name, int(to))
			}
		},
	}
	if reporter != nil {
		reporter.SetBreakerState(name, int(gobreaker.StateClosed))
	}

	return &BreakerRecordStore{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
		name: name,
	}
}

// Load reads through the breaker
func (s *BreakerRecordStore) Load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	out, err := s.cb.Execute(func() (any, error) {
		return s.next.Load(ctx, collection)
	})
	if errors.Is(err, shared.ErrCorruptCollection) {
		return []json.RawMessage{}, err
	}
	if err != nil {
		return nil, s.wrap(err)
	}
	return out.([]json.RawMessage), nil
}

// SaveAll writes through the breaker
func (s *BreakerRecordStore) SaveAll(ctx context.Context, collection string, records []json.RawMessage) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.next.SaveAll(ctx, collection, records)
	})
	return s.wrap(err)
}

// Versions passes through when the wrapped store tracks versions
func (s *BreakerRecordStore) Versions(ctx context.Context) (map[string]int64, error) {
	v, ok := s.next.(ledger.Versioner)
	if !ok {
		return map[string]int64{}, nil
	}
	return v.Versions(ctx)
}

// State returns the breaker state
func (s *BreakerRecordStore) State() gobreaker.State {
	return s.cb.State()
}

func (s *BreakerRecordStore) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: breaker %s: %w", ErrStoreUnavailable, s.name, err)
	}
	return err
}
