package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rent-comb/app/cache"
	"github.com/lysyi3m/rent-comb/app/fetch"
	"github.com/lysyi3m/rent-comb/app/listing"
	"github.com/lysyi3m/rent-comb/app/notify"
)

type Fetcher interface {
	RunCycle(ctx context.Context, filter listing.Filter) ([]fetch.Result, error)
}

var (
	_ Fetcher       = (*fetch.Orchestrator)(nil)
	_ TaskInterface = (*PollTask)(nil)
)

// CycleReport summarizes one completed poll cycle.
type CycleReport struct {
	Found     int          `json:"found"`
	Parsed    int          `json:"parsed"`
	CacheSize int          `json:"cache_size"`
	Notify    notify.Stats `json:"notify"`
}

// PollTask runs one full cycle: fetch, reconcile the cache, notify.
type PollTask struct {
	Task
	profile *listing.Profile
	fetcher Fetcher
	cache   *cache.ListingCache
	gate    *notify.Gate

	Report CycleReport
}

func NewPollTask(profile *listing.Profile, fetcher Fetcher, c *cache.ListingCache, gate *notify.Gate) *PollTask {
	return &PollTask{
		Task:    NewTask(TaskTypePoll, profile.Name),
		profile: profile,
		fetcher: fetcher,
		cache:   c,
		gate:    gate,
	}
}

func (t *PollTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	results, err := t.fetcher.RunCycle(ctx, t.profile.Filter)
	if err != nil {
		return fmt.Errorf("failed to run search: %w", err)
	}

	listings := fetch.Listings(results)
	t.cache.Reconcile(listings)

	stats := t.gate.Process(ctx, t.cache)

	t.Report = CycleReport{
		Found:     len(results),
		Parsed:    len(listings),
		CacheSize: t.cache.Len(),
		Notify:    stats,
	}

	slog.Debug("Poll cycle processed", "profile", t.ProfileName, "found", len(results), "parsed", len(listings),
		"notified", stats.Notified, "absorbed", stats.Absorbed, "failed", stats.Failed)

	return nil
}
