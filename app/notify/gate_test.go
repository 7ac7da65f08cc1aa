package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/rent-comb/app/cache"
	"github.com/lysyi3m/rent-comb/app/database"
	"github.com/lysyi3m/rent-comb/app/listing"
)

type mockStore struct {
	records map[string]database.Record
	getErr  error
	putErr  error
	gets    int
	puts    int
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[string]database.Record)}
}

func (m *mockStore) Get(ctx context.Context, id string) (*database.Record, error) {
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *mockStore) Put(ctx context.Context, rec database.Record) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	if _, ok := m.records[rec.ID]; !ok {
		m.records[rec.ID] = rec
	}
	return nil
}

type mockNotifier struct {
	messages []string
	err      error
}

func (m *mockNotifier) Send(ctx context.Context, text string) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, text)
	return nil
}

func testListing(id string, floor *int) listing.Listing {
	l := listing.New(id, "https://www.ss.lv/msg/"+id+".html", time.Date(2024, 3, 12, 10, 15, 0, 0, time.UTC))
	l.Price = "400 €"
	l.Rooms = 2
	l.Area = 50
	l.Floor = floor
	return *l
}

func intPtr(n int) *int {
	return &n
}

func newCache(listings ...listing.Listing) *cache.ListingCache {
	c := cache.NewListingCache()
	c.Reconcile(listings)
	return c
}

func TestGateNotifiesNewListings(t *testing.T) {
	store := newMockStore()
	notifier := &mockNotifier{}
	gate := NewGate(store, notifier, 2)
	c := newCache(testListing("101", intPtr(1)), testListing("102", nil))

	stats := gate.Process(context.Background(), c)

	if stats.Notified != 2 || stats.Examined != 2 {
		t.Errorf("Expected 2 examined and notified, got %+v", stats)
	}
	if len(notifier.messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(notifier.messages))
	}
	if !strings.Contains(notifier.messages[0], "https://www.ss.lv/msg/101.html") {
		t.Errorf("Expected first message for 101 (id order), got %q", notifier.messages[0])
	}
	if len(store.records) != 2 {
		t.Errorf("Expected 2 durable records, got %d", len(store.records))
	}

	for _, id := range []string{"101", "102"} {
		e, _ := c.Get(id)
		if e.Lifecycle != cache.Sent {
			t.Errorf("Expected %s to be sent, got %s", id, e.Lifecycle)
		}
		if !e.Expired {
			t.Errorf("Expected %s to be marked expired after decision", id)
		}
	}
}

func TestGateSentIsMonotonic(t *testing.T) {
	store := newMockStore()
	notifier := &mockNotifier{}
	gate := NewGate(store, notifier, 2)
	c := newCache(testListing("101", nil))

	gate.Process(context.Background(), c)
	c.Reconcile([]listing.Listing{testListing("101", nil)})
	stats := gate.Process(context.Background(), c)

	if len(notifier.messages) != 1 {
		t.Errorf("Expected exactly one message, got %d", len(notifier.messages))
	}
	if stats.Skipped != 1 || stats.Notified != 0 {
		t.Errorf("Expected second pass to skip, got %+v", stats)
	}
	if store.gets != 1 {
		t.Errorf("Expected no store lookup for sent entry, got %d lookups", store.gets)
	}
}

func TestGateSkipsHighFloorWithoutElevator(t *testing.T) {
	store := newMockStore()
	notifier := &mockNotifier{}
	gate := NewGate(store, notifier, 2)
	c := newCache(testListing("101", intPtr(4)))

	e, _ := c.Get("101")
	if d := gate.Decide(context.Background(), e); d != Skip {
		t.Errorf("Expected skip, got %s", d)
	}
	if e.Lifecycle != cache.Active {
		t.Errorf("Expected lifecycle to stay active, got %s", e.Lifecycle)
	}
	if !e.Expired {
		t.Errorf("Expected entry marked expired")
	}
	if store.gets != 0 || len(notifier.messages) != 0 {
		t.Errorf("Expected no store or notifier calls")
	}
}

func TestGateSuitability(t *testing.T) {
	gate := NewGate(newMockStore(), &mockNotifier{}, 2)

	tests := []struct {
		name     string
		floor    *int
		elevator bool
		desc     *listing.Description
		expected bool
	}{
		{"unknown floor", nil, false, nil, true},
		{"at threshold", intPtr(2), false, nil, true},
		{"above threshold", intPtr(3), false, nil, false},
		{"above threshold with elevator", intPtr(7), true, nil, true},
		{"above threshold with described elevator", intPtr(7), false, &listing.Description{HasElevatorMention: true}, true},
		{"above threshold with other mentions", intPtr(5), false, &listing.Description{HasParkingMention: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &cache.Entry{Listing: testListing("x", tt.floor)}
			e.Listing.HasElevator = tt.elevator
			e.Listing.Description = tt.desc

			if got := gate.Suitable(e); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestGateAbsorbsStoredRecords(t *testing.T) {
	store := newMockStore()
	store.records["101"] = database.Record{ID: "101"}
	notifier := &mockNotifier{}
	gate := NewGate(store, notifier, 2)
	c := newCache(testListing("101", nil))

	stats := gate.Process(context.Background(), c)

	if stats.Absorbed != 1 || stats.Notified != 0 {
		t.Errorf("Expected 1 absorbed, got %+v", stats)
	}
	if len(notifier.messages) != 0 {
		t.Errorf("Expected no messages, got %d", len(notifier.messages))
	}
	e, _ := c.Get("101")
	if e.Lifecycle != cache.Sent {
		t.Errorf("Expected lifecycle sent, got %s", e.Lifecycle)
	}
}

func TestGatePutFailureStillNotifies(t *testing.T) {
	store := newMockStore()
	store.putErr = errors.New("disk full")
	notifier := &mockNotifier{}
	gate := NewGate(store, notifier, 2)
	c := newCache(testListing("101", nil))

	stats := gate.Process(context.Background(), c)

	if stats.Notified != 1 || len(notifier.messages) != 1 {
		t.Errorf("Expected notification despite put failure, got %+v", stats)
	}
	e, _ := c.Get("101")
	if e.Lifecycle != cache.Sent {
		t.Errorf("Expected lifecycle sent, got %s", e.Lifecycle)
	}
}

func TestGateGetErrorFailsOpen(t *testing.T) {
	store := newMockStore()
	store.getErr = errors.New("connection reset")
	notifier := &mockNotifier{}
	gate := NewGate(store, notifier, 2)
	c := newCache(testListing("101", nil))

	e, _ := c.Get("101")
	if d := gate.Decide(context.Background(), e); d != Notify {
		t.Errorf("Expected notify on store error, got %s", d)
	}
}

func TestGateSendFailureRetriesNextCycle(t *testing.T) {
	store := newMockStore()
	notifier := &mockNotifier{err: errors.New("bad gateway")}
	gate := NewGate(store, notifier, 2)
	c := newCache(testListing("101", nil))

	stats := gate.Process(context.Background(), c)

	if stats.Failed != 1 {
		t.Errorf("Expected 1 failure, got %+v", stats)
	}
	e, _ := c.Get("101")
	if e.Lifecycle != cache.Active {
		t.Errorf("Expected lifecycle to stay active, got %s", e.Lifecycle)
	}
	if gate.Pending() != 1 {
		t.Errorf("Expected 1 pending delivery, got %d", gate.Pending())
	}

	notifier.err = nil
	c.Reconcile([]listing.Listing{testListing("101", nil)})
	stats = gate.Process(context.Background(), c)

	if stats.Notified != 1 || len(notifier.messages) != 1 {
		t.Errorf("Expected retry to notify despite stored record, got %+v", stats)
	}
	if gate.Pending() != 0 {
		t.Errorf("Expected no pending deliveries, got %d", gate.Pending())
	}
	if store.puts != 2 || len(store.records) != 1 {
		t.Errorf("Expected idempotent second put, got %d puts and %d records", store.puts, len(store.records))
	}
}

func TestGatePendingSurvivesEviction(t *testing.T) {
	store := newMockStore()
	notifier := &mockNotifier{err: errors.New("timeout")}
	gate := NewGate(store, notifier, 2)
	c := newCache(testListing("101", nil))

	// Recorded, but the send fails.
	gate.Process(context.Background(), c)

	// Detail fetch fails for one cycle, so the entry is evicted.
	c.Reconcile(nil)
	gate.Process(context.Background(), c)
	if gate.Pending() != 1 {
		t.Fatalf("Expected pending delivery to survive eviction, got %d", gate.Pending())
	}

	notifier.err = nil
	c.Reconcile([]listing.Listing{testListing("101", nil)})
	stats := gate.Process(context.Background(), c)

	if stats.Notified != 1 || stats.Absorbed != 0 || len(notifier.messages) != 1 {
		t.Errorf("Expected reappearing listing to be delivered, got %+v with %d messages", stats, len(notifier.messages))
	}
	if gate.Pending() != 0 {
		t.Errorf("Expected no pending deliveries, got %d", gate.Pending())
	}
}

func TestGatePendingExpiresAfterRetention(t *testing.T) {
	notifier := &mockNotifier{err: errors.New("timeout")}
	gate := NewGate(newMockStore(), notifier, 2)
	now := time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }
	c := newCache(testListing("101", nil))

	gate.Process(context.Background(), c)
	c.Reconcile(nil)

	now = now.Add(PendingRetention - time.Hour)
	gate.Process(context.Background(), c)
	if gate.Pending() != 1 {
		t.Errorf("Expected pending delivery within retention, got %d", gate.Pending())
	}

	now = now.Add(2 * time.Hour)
	gate.Process(context.Background(), c)
	if gate.Pending() != 0 {
		t.Errorf("Expected pending delivery to expire, got %d", gate.Pending())
	}
}

func TestGateStopsOnCancelledContext(t *testing.T) {
	notifier := &mockNotifier{}
	gate := NewGate(newMockStore(), notifier, 2)
	c := newCache(testListing("101", nil), testListing("102", nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats := gate.Process(ctx, c)
	if stats.Examined != 0 || len(notifier.messages) != 0 {
		t.Errorf("Expected nothing processed, got %+v", stats)
	}
}
