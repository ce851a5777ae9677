package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "meeza:"

// RedisRecordStore keeps each ledger collection as a JSON array string under
// <prefix><collection>, with a version counter under <prefix><collection>:version.
// Saves run in a WATCH transaction on the version key.
type RedisRecordStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRecordStore connects to Redis and checks the connection
func NewRedisRecordStore(ctx context.Context, cfg config.RedisConfig, keyPrefix string) (*RedisRecordStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisRecordStoreWithClient(client, keyPrefix), nil
}

// NewRedisRecordStoreWithClient creates a store with an existing Redis client
func NewRedisRecordStoreWithClient(client *redis.Client, keyPrefix string) *RedisRecordStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisRecordStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisRecordStore) dataKey(collection string) string {
	return s.keyPrefix + collection
}

func (s *RedisRecordStore) versionKey(collection string) string {
	return s.keyPrefix + collection + ":version"
}

// Load returns the records of collection, or none if it was never saved.
// A corrupt payload also yields none, with shared.ErrCorruptCollection.
func (s *RedisRecordStore) Load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	payload, err := s.client.Get(ctx, s.dataKey(collection)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", collection, err)
	}
	return decodeRecords(collection, payload)
}

func decodeRecords(collection string, payload []byte) ([]json.RawMessage, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(payload, &records); err != nil {
		return []json.RawMessage{}, fmt.Errorf("decode collection %s: %w: %v", collection, shared.ErrCorruptCollection, err)
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

// SaveAll replaces collection with records. A concurrent save from another
// process makes it fail with shared.ErrConcurrencyConflict.
func (s *RedisRecordStore) SaveAll(ctx context.Context, collection string, records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	versionKey := s.versionKey(collection)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := tx.Get(ctx, versionKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.dataKey(collection), payload, 0)
			pipe.Incr(ctx, versionKey)
			return nil
		})
		return err
	}, versionKey)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("save collection %s: %w", collection, shared.ErrConcurrencyConflict)
	}
	if err != nil {
		return fmt.Errorf("save collection %s: %w", collection, err)
	}
	return nil
}

// Versions returns the stored version of every saved collection
func (s *RedisRecordStore) Versions(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*:version", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		version, err := s.client.Get(ctx, key).Int64()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, s.keyPrefix), ":version")
		out[name] = version
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan versions: %w", err)
	}
	return out, nil
}

// Close closes the Redis client
func (s *RedisRecordStore) Close() error {
	return s.client.Close()
}
