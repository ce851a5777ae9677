package persistence

import (
	"context"
	"testing"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormAuditStore(t *testing.T) {
	ctx := context.Background()
	records := newSQLiteRecordStore(t)
	store := NewGormAuditStore(records.db)
	require.NoError(t, store.AutoMigrate(ctx))

	require.NoError(t, store.SaveAudit(ctx, &ledger.AuditReport{CheckedAt: 100, Findings: []ledger.Finding{}}))
	require.NoError(t, store.SaveAudit(ctx, &ledger.AuditReport{
		CheckedAt: 200,
		Findings: []ledger.Finding{
			{Check: "stock_negative", Entity: "item", ID: "ITM-1", Detail: "quantity -2"},
		},
	}))

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(200), recent[0].CheckedAt)
	assert.Equal(t, "stock_negative", recent[0].Findings[0].Check)
	assert.True(t, recent[1].OK())

	one, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}
