package notify

import (
	"context"

	"github.com/lysyi3m/rent-comb/app/database"
)

// Store is the durable "already notified" check.
type Store interface {
	Get(ctx context.Context, id string) (*database.Record, error)
	Put(ctx context.Context, rec database.Record) error
}

type Notifier interface {
	Send(ctx context.Context, text string) error
}

var (
	_ Store    = (database.RecordStore)(nil)
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
