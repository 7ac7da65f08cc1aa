package database

import (
	"context"
)

// RecordStore is implemented by every durable backend. Get returns (nil, nil)
// when the id has never been recorded; Put is idempotent per id.
type RecordStore interface {
	Get(ctx context.Context, id string) (*Record, error)
	Put(ctx context.Context, rec Record) error
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

var (
	_ RecordStore = (*RecordRepository)(nil)
	_ RecordStore = (*RedisRecordStore)(nil)
)
