//go:build integration

package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/migration"
	"github.com/edumahmoud/try-meeza-crm/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newPostgresRecordStore(t *testing.T) *GormRecordStore {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("meeza_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{SkipDefaultTransaction: true, Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return NewGormRecordStore(db)
}

func TestGormRecordStore_Postgres(t *testing.T) {
	ctx := context.Background()
	store := newPostgresRecordStore(t)

	require.NoError(t, store.SaveAll(ctx, ledger.CollectionItems, []json.RawMessage{json.RawMessage(`{"id":"ITM-1"}`)}))
	require.NoError(t, store.SaveAll(ctx, ledger.CollectionItems, []json.RawMessage{json.RawMessage(`{"id":"ITM-2"}`)}))

	records, err := store.Load(ctx, ledger.CollectionItems)
	require.NoError(t, err)
	assert.Equal(t, []json.RawMessage{json.RawMessage(`{"id":"ITM-2"}`)}, records)

	versions, err := store.Versions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), versions[ledger.CollectionItems])

	t.Run("concurrent writers never lose a version", func(t *testing.T) {
		var wg sync.WaitGroup
		var ok atomic.Int64
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec := json.RawMessage(fmt.Sprintf(`{"id":"ITM-%d"}`, i))
				err := store.SaveAll(ctx, ledger.CollectionSuppliers, []json.RawMessage{rec})
				if err == nil {
					ok.Add(1)
					return
				}
				assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
			}()
		}
		wg.Wait()

		versions, err := store.Versions(ctx)
		require.NoError(t, err)
		assert.Equal(t, ok.Load(), versions[ledger.CollectionSuppliers])
	})
}
