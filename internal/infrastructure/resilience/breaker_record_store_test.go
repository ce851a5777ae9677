package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/config"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var _ ledger.RecordStore = (*BreakerRecordStore)(nil)

type stubStore struct {
	err   error
	saves int
}

func (s *stubStore) Load(context.Context, string) ([]json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []json.RawMessage{json.RawMessage(`{"id":"ITM-1"}`)}, nil
}

func (s *stubStore) SaveAll(context.Context, string, []json.RawMessage) error {
	s.saves++
	return s.err
}

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) SetBreakerState(name string, state int) {
	m.Called(name, state)
}

func testBreakerConfig() config.BreakerConfig {
	return config.BreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Hour,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func TestBreakerRecordStore_PassesThrough(t *testing.T) {
	inner := &stubStore{}
	s := NewBreakerRecordStore(inner, "store", testBreakerConfig(), nil, nil)

	records, err := s.Load(context.Background(), ledger.CollectionItems)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	require.NoError(t, s.SaveAll(context.Background(), ledger.CollectionItems, records))
	assert.Equal(t, 1, inner.saves)
	assert.Equal(t, gobreaker.StateClosed, s.State())
}

func TestBreakerRecordStore_TripsOnFailures(t *testing.T) {
	inner := &stubStore{err: errors.New("connection refused")}
	reporter := &mockReporter{}
	reporter.On("SetBreakerState", "store", int(gobreaker.StateClosed)).Once()
	reporter.On("SetBreakerState", "store", int(gobreaker.StateOpen)).Once()

	s := NewBreakerRecordStore(inner, "store", testBreakerConfig(), reporter, nil)
	ctx := context.Background()

	for range 3 {
		err := s.SaveAll(ctx, ledger.CollectionSales, nil)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrStoreUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, s.State())

	err := s.SaveAll(ctx, ledger.CollectionSales, nil)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, inner.saves)

	_, err = s.Load(ctx, ledger.CollectionSales)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	reporter.AssertExpectations(t)
}

func TestBreakerRecordStore_ConflictsDoNotTrip(t *testing.T) {
	inner := &stubStore{err: fmt.Errorf("save: %w", shared.ErrConcurrencyConflict)}
	s := NewBreakerRecordStore(inner, "store", testBreakerConfig(), nil, nil)

	for range 5 {
		err := s.SaveAll(context.Background(), ledger.CollectionSuppliers, nil)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	}
	assert.Equal(t, gobreaker.StateClosed, s.State())
	assert.Equal(t, 5, inner.saves)
}

func TestBreakerRecordStore_CorruptPayloadsDoNotTrip(t *testing.T) {
	inner := &stubStore{err: fmt.Errorf("decode collection: %w", shared.ErrCorruptCollection)}
	s := NewBreakerRecordStore(inner, "store", testBreakerConfig(), nil, nil)

	for range 5 {
		records, err := s.Load(context.Background(), ledger.CollectionSuppliers)
		assert.ErrorIs(t, err, shared.ErrCorruptCollection)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	}
	assert.Equal(t, gobreaker.StateClosed, s.State())
}

type versionedStub struct {
	stubStore
}

func (versionedStub) Versions(context.Context) (map[string]int64, error) {
	return map[string]int64{ledger.CollectionItems: 7}, nil
}

func TestBreakerRecordStore_Versions(t *testing.T) {
	t.Run("passes through", func(t *testing.T) {
		s := NewBreakerRecordStore(&versionedStub{}, "store", testBreakerConfig(), nil, nil)
		v, err := s.Versions(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(7), v[ledger.CollectionItems])
	})

	t.Run("empty without versions", func(t *testing.T) {
		s := NewBreakerRecordStore(&stubStore{}, "store", testBreakerConfig(), nil, nil)
		v, err := s.Versions(context.Background())
		require.NoError(t, err)
		assert.Empty(t, v)
	})
}
