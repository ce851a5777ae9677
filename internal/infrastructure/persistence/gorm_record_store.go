package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CollectionModel is one stored collection: a JSON array of records kept as
// text so it reads back byte for byte.
type CollectionModel struct {
	Collection string `gorm:"primaryKey;size:64"`
	Records    string `gorm:"type:text;not null"`
	Version    int64  `gorm:"not null"`
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM
func (CollectionModel) TableName() string {
	return "ledger_collections"
}

// GormRecordStore keeps each ledger collection in one row. Every save bumps
// the row version and fails if another writer bumped it first.
type GormRecordStore struct {
	db *gorm.DB
}

// NewGormRecordStore creates a record store on db
func NewGormRecordStore(db *gorm.DB) *GormRecordStore {
	return &GormRecordStore{db: db}
}

// AutoMigrate creates the collections table. Postgres deployments use the
// SQL migrations instead.
func (s *GormRecordStore) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&CollectionModel{})
}

// Load returns the records of collection, or none if it was never saved
func (s *GormRecordStore) Load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	var row CollectionModel
	err := s.db.WithContext(ctx).Where("collection = ?", collection).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", collection, err)
	}
	return decodeCollection(collection, []byte(row.Records))
}

// SaveAll replaces collection with records
func (s *GormRecordStore) SaveAll(ctx context.Context, collection string, records []json.RawMessage) error {
	payload, err := encodeCollection(records)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current CollectionModel
		err := tx.Select("version").Where("collection = ?", collection).Take(&current).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row := CollectionModel{Collection: collection, Records: string(payload), Version: 1}
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
			if result.Error != nil {
				return fmt.Errorf("insert collection %s: %w", collection, result.Error)
			}
			if result.RowsAffected == 0 {
				return conflict(collection)
			}
			return nil
		case err != nil:
			return fmt.Errorf("read collection %s version: %w", collection, err)
		}

		result := tx.Model(&CollectionModel{}).
			Where("collection = ? AND version = ?", collection, current.Version).
			Updates(map[string]any{
				"records": string(payload),
				"version": current.Version + 1,
			})
		if result.Error != nil {
			return fmt.Errorf("update collection %s: %w", collection, result.Error)
		}
		if result.RowsAffected == 0 {
			return conflict(collection)
		}
		return nil
	})
}

// Versions returns the stored version of every saved collection
func (s *GormRecordStore) Versions(ctx context.Context) (map[string]int64, error) {
	var rows []CollectionModel
	if err := s.db.WithContext(ctx).Select("collection", "version").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Collection] = r.Version
	}
	return out, nil
}

func conflict(collection string) error {
	return fmt.Errorf("save collection %s: %w", collection, shared.ErrConcurrencyConflict)
}

// encodeCollection writes records as one JSON array; nil becomes []
func encodeCollection(records []json.RawMessage) ([]byte, error) {
	if records == nil {
		records = []json.RawMessage{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return payload, nil
}

// decodeCollection reads a stored JSON array. A payload that is not one
// yields no records and an error matching shared.ErrCorruptCollection.
func decodeCollection(collection string, payload []byte) ([]json.RawMessage, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(payload, &records); err != nil {
		return []json.RawMessage{}, fmt.Errorf("decode collection %s: %w: %v", collection, shared.ErrCorruptCollection, err)
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}
