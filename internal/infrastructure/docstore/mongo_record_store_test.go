package docstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/edumahmoud/try-meeza-crm/internal/application/ledger"
	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

var _ ledger.RecordStore = (*MongoRecordStore)(nil)

func TestMongoRecordStore_Load(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("missing collection is empty", func(mt *mtest.T) {
		store := NewMongoRecordStore(mt.DB)
		ns := mt.DB.Name() + "." + CollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		records, err := store.Load(context.Background(), ledger.CollectionItems)
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	mt.Run("decodes stored records", func(mt *mtest.T) {
		store := NewMongoRecordStore(mt.DB)
		ns := mt.DB.Name() + "." + CollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: ledger.CollectionItems},
			{Key: "records", Value: `[{"id":"ITM-1"},{"id":"ITM-2"}]`},
			{Key: "version", Value: int64(4)},
		}))

		records, err := store.Load(context.Background(), ledger.CollectionItems)
		require.NoError(t, err)
		assert.Equal(t, []json.RawMessage{
			json.RawMessage(`{"id":"ITM-1"}`),
			json.RawMessage(`{"id":"ITM-2"}`),
		}, records)
	})

	mt.Run("corrupt payload loads empty", func(mt *mtest.T) {
		store := NewMongoRecordStore(mt.DB)
		ns := mt.DB.Name() + "." + CollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: ledger.CollectionItems},
			{Key: "records", Value: `{"not":"an array"}`},
		}))

		records, err := store.Load(context.Background(), ledger.CollectionItems)
		assert.ErrorIs(t, err, shared.ErrCorruptCollection)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})
}

func TestMongoRecordStore_SaveAll(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	records := []json.RawMessage{json.RawMessage(`{"id":"SUP-1"}`)}

	mt.Run("first save inserts", func(mt *mtest.T) {
		store := NewMongoRecordStore(mt.DB)
		ns := mt.DB.Name() + "." + CollectionName
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateSuccessResponse(),
		)

		require.NoError(t, store.SaveAll(context.Background(), ledger.CollectionSuppliers, records))
	})

	mt.Run("racing insert is a conflict", func(mt *mtest.T) {
		store := NewMongoRecordStore(mt.DB)
		ns := mt.DB.Name() + "." + CollectionName
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}),
		)

		err := store.SaveAll(context.Background(), ledger.CollectionSuppliers, records)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	mt.Run("update bumps version", func(mt *mtest.T) {
		store := NewMongoRecordStore(mt.DB)
		ns := mt.DB.Name() + "." + CollectionName
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: ledger.CollectionSuppliers},
				{Key: "version", Value: int64(2)},
			}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		require.NoError(t, store.SaveAll(context.Background(), ledger.CollectionSuppliers, records))
	})

	mt.Run("stale version is a conflict", func(mt *mtest.T) {
		store := NewMongoRecordStore(mt.DB)
		ns := mt.DB.Name() + "." + CollectionName
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: ledger.CollectionSuppliers},
				{Key: "version", Value: int64(2)},
			}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		err := store.SaveAll(context.Background(), ledger.CollectionSuppliers, records)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestMongoRecordStore_Versions(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("collects versions", func(mt *mtest.T) {
		store := NewMongoRecordStore(mt.DB)
		ns := mt.DB.Name() + "." + CollectionName
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				bson.D{{Key: "_id", Value: ledger.CollectionItems}, {Key: "version", Value: int64(3)}},
				bson.D{{Key: "_id", Value: ledger.CollectionSales}, {Key: "version", Value: int64(1)}},
			),
		)

		versions, err := store.Versions(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{
			ledger.CollectionItems: 3,
			ledger.CollectionSales: 1,
		}, versions)
	})
}
