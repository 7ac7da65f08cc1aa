package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/lysyi3m/rent-comb/app/apperr"
	"github.com/lysyi3m/rent-comb/app/cache"
)

type Decision int

const (
	Skip Decision = iota
	Notify
)

func (d Decision) String() string {
	if d == Notify {
		return "notify"
	}
	return "skip"
}

// Stats counts what one pass over the cache did.
type Stats struct {
	Examined int `json:"examined"`
	Notified int `json:"notified"`
	Skipped  int `json:"skipped"`
	Absorbed int `json:"absorbed"` // already in the durable store
	Failed   int `json:"failed"`
}

// PendingRetention bounds how long a failed delivery stays queued for retry
// while its listing is absent from the site.
const PendingRetention = 7 * 24 * time.Hour

// Gate decides which cached listings are announced and records them durably.
// It is owned by the poll loop and is not safe for concurrent use.
type Gate struct {
	store          Store
	notifier       Notifier
	floorThreshold int

	// ids already recorded whose delivery failed, with the time of the first
	// failure; their record must not count as proof of notification on retry
	pending map[string]time.Time
	now     func() time.Time
}

func NewGate(store Store, notifier Notifier, floorThreshold int) *Gate {
	return &Gate{
		store:          store,
		notifier:       notifier,
		floorThreshold: floorThreshold,
		pending:        make(map[string]time.Time),
		now:            time.Now,
	}
}

// Decide classifies a single entry. A Store hit marks the entry Sent without
// notifying. The entry is always left with Expired set.
func (g *Gate) Decide(ctx context.Context, e *cache.Entry) Decision {
	defer func() { e.Expired = true }()

	if e.Lifecycle == cache.Sent {
		return Skip
	}

	if !g.Suitable(e) {
		return Skip
	}

	if _, ok := g.pending[e.Listing.ID]; ok {
		return Notify
	}

	rec, err := g.store.Get(ctx, e.Listing.ID)
	if err != nil {
		slog.Warn("Store lookup failed, treating listing as new", "id", e.Listing.ID,
			"error", apperr.Store("get record", err))
	}
	if rec != nil {
		e.Lifecycle = cache.Sent
		return Skip
	}

	return Notify
}

// Suitable rejects high floors that show no sign of an elevator. An unknown
// floor is always suitable.
func (g *Gate) Suitable(e *cache.Entry) bool {
	l := &e.Listing
	if l.ElevatorSignal() || l.Floor == nil {
		return true
	}
	return *l.Floor <= g.floorThreshold
}

// Process runs Decide over every entry in id order and delivers the
// notifications. The Store write precedes Send; a failed write is logged and
// does not block delivery.
func (g *Gate) Process(ctx context.Context, c *cache.ListingCache) Stats {
	var stats Stats

	for _, e := range c.Entries() {
		if ctx.Err() != nil {
			break
		}
		stats.Examined++

		wasSent := e.Lifecycle == cache.Sent
		if g.Decide(ctx, e) == Skip {
			if !wasSent && e.Lifecycle == cache.Sent {
				stats.Absorbed++
			} else {
				stats.Skipped++
			}
			continue
		}

		if err := g.deliver(ctx, e); err != nil {
			slog.Error("Notification failed", "id", e.Listing.ID, "kind", apperr.KindOf(err), "error", err)
			if _, ok := g.pending[e.Listing.ID]; !ok {
				g.pending[e.Listing.ID] = g.now()
			}
			stats.Failed++
			continue
		}

		delete(g.pending, e.Listing.ID)
		e.Lifecycle = cache.Sent
		stats.Notified++
	}

	g.expirePending()

	return stats
}

// Pending returns the number of listings awaiting a delivery retry.
func (g *Gate) Pending() int {
	return len(g.pending)
}

// expirePending forgets failed deliveries older than PendingRetention.
// Eviction alone does not drop an id: the listing may reappear next cycle.
func (g *Gate) expirePending() {
	cutoff := g.now().Add(-PendingRetention)
	for id, failedAt := range g.pending {
		if failedAt.Before(cutoff) {
			slog.Warn("Dropping undelivered listing after retention", "id", id, "failed_at", failedAt)
			delete(g.pending, id)
		}
	}
}

func (g *Gate) deliver(ctx context.Context, e *cache.Entry) error {
	l := &e.Listing

	if err := g.store.Put(ctx, NewRecord(l)); err != nil {
		slog.Error("Failed to record listing", "id", l.ID, "error", apperr.Store("put record", err))
	}

	if err := g.notifier.Send(ctx, FormatMessage(l)); err != nil {
		return apperr.Notify("send notification", err)
	}

	slog.Info("Listing notified", "id", l.ID, "price", l.Price, "url", l.URL)
	return nil
}
