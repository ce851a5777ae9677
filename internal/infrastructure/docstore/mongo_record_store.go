// Package docstore keeps ledger collections in MongoDB.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the Mongo collection holding one document per ledger collection
const CollectionName = "ledger_collections"

// collectionDocument stores records as JSON text so they read back byte for byte
type collectionDocument struct {
	Name      string    `bson:"_id"`
	Records   string    `bson:"records"`
	Version   int64     `bson:"version"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoRecordStore implements the ledger record store on MongoDB with a
// version compare-and-swap per collection.
type MongoRecordStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

// Connect opens a client for cfg and pings the primary
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// NewMongoRecordStore creates a record store in db
func NewMongoRecordStore(db *mongo.Database) *MongoRecordStore {
	return &MongoRecordStore{
		collection: db.Collection(CollectionName),
		now:        time.Now,
	}
}

// Load returns the records of collection, or none if it was never saved.
// A corrupt payload also yields none, with shared.ErrCorruptCollection.
func (s *MongoRecordStore) Load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	var doc collectionDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": collection}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", collection, err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(doc.Records), &records); err != nil {
		return []json.RawMessage{}, fmt.Errorf("decode collection %s: %w: %v", collection, shared.ErrCorruptCollection, err)
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

// SaveAll replaces collection with records
func (s *MongoRecordStore) SaveAll(ctx context.Context, collection string, records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	var current collectionDocument
	err = s.collection.FindOne(ctx, bson.M{"_id": collection},
		options.FindOne().SetProjection(bson.M{"version": 1})).Decode(&current)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		_, err := s.collection.InsertOne(ctx, collectionDocument{
			Name:      collection,
			Records:   string(payload),
			Version:   1,
			UpdatedAt: s.now().UTC(),
		})
		if mongo.IsDuplicateKeyError(err) {
			return conflict(collection)
		}
		if err != nil {
			return fmt.Errorf("insert collection %s: %w", collection, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read collection %s version: %w", collection, err)
	}

	res, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": collection, "version": current.Version},
		bson.M{
			"$set": bson.M{"records": string(payload), "updatedAt": s.now().UTC()},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return fmt.Errorf("update collection %s: %w", collection, err)
	}
	if res.MatchedCount == 0 {
		return conflict(collection)
	}
	return nil
}

// Versions returns the stored version of every saved collection
func (s *MongoRecordStore) Versions(ctx context.Context) (map[string]int64, error) {
	cursor, err := s.collection.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"version": 1}))
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer cursor.Close(ctx)

	out := make(map[string]int64)
	for cursor.Next(ctx) {
		var doc collectionDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode collection version: %w", err)
		}
		out[doc.Name] = doc.Version
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return out, nil
}

func conflict(collection string) error {
	return fmt.Errorf("save collection %s: %w", collection, shared.ErrConcurrencyConflict)
}
