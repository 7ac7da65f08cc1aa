package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const recordKeyPrefix = "listing:"

// RedisRecordStore keeps notification records as JSON values in Redis.
type RedisRecordStore struct {
	client *redis.Client
}

func NewRedisRecordStore(ctx context.Context, addr, password string, db int) (*RedisRecordStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr, "db", db)

	return &RedisRecordStore{client: client}, nil
}

func RecordKey(id string) string {
	return recordKeyPrefix + id
}

func (s *RedisRecordStore) Get(ctx context.Context, id string) (*Record, error) {
	val, err := s.client.Get(ctx, RecordKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", RecordKey(id), err)
	}

	var rec Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
	}

	return &rec, nil
}

// Put writes rec with SETNX so an existing record is never replaced.
func (s *RedisRecordStore) Put(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", rec.ID, err)
	}

	if err := s.client.SetNX(ctx, RecordKey(rec.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", RecordKey(rec.ID), err)
	}

	return nil
}

func (s *RedisRecordStore) Count(ctx context.Context) (int, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *RedisRecordStore) List(ctx context.Context, limit int) ([]Record, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	records := make([]Record, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			slog.Warn("Skipping undecodable record", "key", keys[i], "error", err)
			continue
		}
		records = append(records, rec)
	}

	sortRecords(records)

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *RedisRecordStore) Close() error {
	return s.client.Close()
}

func (s *RedisRecordStore) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, recordKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	return keys, nil
}

// sortRecords orders newest first, ties broken by id, matching the SQL backend.
func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}
