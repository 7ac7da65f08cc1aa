package cache

import (
	"log/slog"
	"sort"

	"github.com/lysyi3m/rent-comb/app/listing"
)

type Lifecycle int

const (
	Active Lifecycle = iota
	Sent
)

func (l Lifecycle) String() string {
	if l == Sent {
		return "sent"
	}
	return "active"
}

// Entry is a cached listing with its notification state. Expired is scratch
// state used by Reconcile to find entries that disappeared from the site.
type Entry struct {
	Listing   listing.Listing `json:"listing"`
	Lifecycle Lifecycle       `json:"lifecycle"`
	Expired   bool            `json:"-"`
}

// ListingCache holds the listings seen in the latest cycle keyed by id.
// It is owned by the poll loop and is not safe for concurrent use.
type ListingCache struct {
	entries map[string]*Entry
}

func NewListingCache() *ListingCache {
	return &ListingCache{entries: make(map[string]*Entry)}
}

// Reconcile brings the cache in line with the listings observed in a cycle.
// New ids enter as Active, known ids keep their payload and lifecycle, and
// ids absent from the batch are evicted.
func (c *ListingCache) Reconcile(batch []listing.Listing) {
	for _, e := range c.entries {
		e.Expired = true
	}

	added := 0
	for _, l := range batch {
		if e, ok := c.entries[l.ID]; ok {
			e.Expired = false
			continue
		}
		c.entries[l.ID] = &Entry{Listing: l, Lifecycle: Active}
		added++
	}

	evicted := 0
	for id, e := range c.entries {
		if e.Expired {
			delete(c.entries, id)
			evicted++
		}
	}

	slog.Debug("Cache reconciled", "batch", len(batch), "added", added, "evicted", evicted, "size", len(c.entries))
}

func (c *ListingCache) Get(id string) (*Entry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

func (c *ListingCache) Len() int {
	return len(c.entries)
}

// Entries returns the live entries ordered by id. Callers may mutate them.
func (c *ListingCache) Entries() []*Entry {
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.entries[id])
	}
	return out
}

// Snapshot returns value copies safe to hand to other goroutines.
func (c *ListingCache) Snapshot() []Entry {
	entries := c.Entries()
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = *e
	}
	return out
}
