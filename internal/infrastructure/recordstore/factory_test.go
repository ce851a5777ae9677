package recordstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/config"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/persistence"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stateRecorder struct {
	states map[string]int
}

func (r *stateRecorder) SetBreakerState(name string, state int) {
	r.states[name] = state
}

func testConfig(driver string) *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Driver: driver},
		Log:   config.LogConfig{Level: "error"},
		Breaker: config.BreakerConfig{
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      time.Second,
			FailureRatio: 0.5,
			MinRequests:  3,
		},
	}
}

func TestFactory_OpenMemory(t *testing.T) {
	opened, err := NewFactory(testConfig(config.StoreMemory), WithBreaker(nil)).Open(context.Background())
	require.NoError(t, err)
	defer opened.Close()

	assert.IsType(t, &persistence.MemoryRecordStore{}, opened.Store)
	assert.Nil(t, opened.Sink)
	assert.Equal(t, config.StoreMemory, opened.Driver)
}

func TestFactory_OpenEmptyDriverFallsBackToMemory(t *testing.T) {
	opened, err := NewFactory(testConfig("")).Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, config.StoreMemory, opened.Driver)
}

func TestFactory_OpenSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(config.StoreSQLite)
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "ledger.db")
	rec := &stateRecorder{states: map[string]int{}}

	opened, err := NewFactory(cfg, WithBreaker(rec)).Open(ctx)
	require.NoError(t, err)
	defer func() { assert.NoError(t, opened.Close()) }()

	assert.IsType(t, &resilience.BreakerRecordStore{}, opened.Store)
	require.NotNil(t, opened.Sink)

	require.NoError(t, opened.Store.SaveAll(ctx, ledger.CollectionItems, []json.RawMessage{json.RawMessage(`{"id":"a"}`)}))
	records, err := opened.Store.Load(ctx, ledger.CollectionItems)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.JSONEq(t, `{"id":"a"}`, string(records[0]))

	versions, err := opened.Store.Versions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), versions[ledger.CollectionItems])

	require.NoError(t, opened.Sink.SaveAudit(ctx, &ledger.AuditReport{CheckedAt: time.Now().UnixMilli(), Findings: []ledger.Finding{}}))
}

func TestFactory_OpenUnknownDriver(t *testing.T) {
	_, err := NewFactory(testConfig("localstorage")).Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "localstorage")
}
