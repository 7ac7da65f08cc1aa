package api

import (
	"context"

	"github.com/lysyi3m/rent-comb/app/database"
	"github.com/lysyi3m/rent-comb/app/tasks"
)

// RecordReader is the read side of the durable store used by the handlers.
type RecordReader interface {
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, limit int) ([]database.Record, error)
}

var _ RecordReader = (database.RecordStore)(nil)

type Handler struct {
	scheduler tasks.TaskSchedulerInterface
	records   RecordReader
	version   string
}
