package orders

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db/models"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
)

func scheduledTimeline(placedAt time.Time) []models.OrderStatusEntry {
	orderID := uuid.New()
	return []models.OrderStatusEntry{
		{ID: uuid.New(), OrderID: orderID, Status: enums.OrderStatusPending, Source: enums.StatusSourceScheduled, StartAt: placedAt},
		{ID: uuid.New(), OrderID: orderID, Status: enums.OrderStatusProcessing, Source: enums.StatusSourceScheduled, StartAt: placedAt.Add(5 * time.Minute)},
		{ID: uuid.New(), OrderID: orderID, Status: enums.OrderStatusShipped, Source: enums.StatusSourceScheduled, StartAt: placedAt.Add(15 * time.Minute)},
		{ID: uuid.New(), OrderID: orderID, Status: enums.OrderStatusDelivered, Source: enums.StatusSourceScheduled, StartAt: placedAt.Add(30 * time.Minute)},
	}
}

func TestCurrentStatusFollowsSchedule(t *testing.T) {
	t.Parallel()

	placedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := scheduledTimeline(placedAt)

	cases := []struct {
		name string
		at   time.Time
		want enums.OrderStatus
	}{
		{"at placement", placedAt, enums.OrderStatusPending},
		{"before first transition", placedAt.Add(2 * time.Minute), enums.OrderStatusPending},
		{"six minutes in", placedAt.Add(6 * time.Minute), enums.OrderStatusProcessing},
		{"twenty minutes in", placedAt.Add(20 * time.Minute), enums.OrderStatusShipped},
		{"forty minutes in", placedAt.Add(40 * time.Minute), enums.OrderStatusDelivered},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := CurrentStatus(entries, tc.at); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestCurrentStatusNoElapsedEntries(t *testing.T) {
	t.Parallel()

	placedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := scheduledTimeline(placedAt)

	if got := CurrentStatus(entries, placedAt.Add(-time.Minute)); got != enums.OrderStatusPending {
		t.Fatalf("expected pending before placement, got %s", got)
	}
	if got := CurrentStatus(nil, placedAt); got != enums.OrderStatusPending {
		t.Fatalf("expected pending with no entries, got %s", got)
	}
}

func TestCurrentStatusCancellationIsTerminal(t *testing.T) {
	t.Parallel()

	placedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := scheduledTimeline(placedAt)
	entries = append(entries, models.OrderStatusEntry{
		ID:      uuid.New(),
		OrderID: entries[0].OrderID,
		Status:  enums.OrderStatusCancelled,
		Source:  enums.StatusSourceOverride,
		StartAt: placedAt.Add(10 * time.Minute),
	})

	if got := CurrentStatus(entries, placedAt.Add(40*time.Minute)); got != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled to survive later scheduled entries, got %s", got)
	}
	if got := CurrentStatus(entries, placedAt.Add(6*time.Minute)); got != enums.OrderStatusProcessing {
		t.Fatalf("expected processing before the cancellation elapses, got %s", got)
	}
}

func TestCurrentStatusOverrideFreezesSchedule(t *testing.T) {
	t.Parallel()

	placedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := scheduledTimeline(placedAt)
	entries = append(entries, models.OrderStatusEntry{
		ID:      uuid.New(),
		OrderID: entries[0].OrderID,
		Status:  enums.OrderStatusDelivered,
		Source:  enums.StatusSourceOverride,
		StartAt: placedAt.Add(6 * time.Minute),
	})

	cases := []struct {
		name string
		at   time.Time
		want enums.OrderStatus
	}{
		{"before the override", placedAt.Add(5 * time.Minute), enums.OrderStatusProcessing},
		{"just after the override", placedAt.Add(7 * time.Minute), enums.OrderStatusDelivered},
		{"when scheduled shipped would elapse", placedAt.Add(16 * time.Minute), enums.OrderStatusDelivered},
		{"after the full schedule", placedAt.Add(40 * time.Minute), enums.OrderStatusDelivered},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := CurrentStatus(entries, tc.at); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestCurrentStatusLaterOverrideWins(t *testing.T) {
	t.Parallel()

	placedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := scheduledTimeline(placedAt)
	orderID := entries[0].OrderID
	entries = append(entries,
		models.OrderStatusEntry{ID: uuid.New(), OrderID: orderID, Status: enums.OrderStatusShipped, Source: enums.StatusSourceOverride, StartAt: placedAt.Add(3 * time.Minute)},
		models.OrderStatusEntry{ID: uuid.New(), OrderID: orderID, Status: enums.OrderStatusDelivered, Source: enums.StatusSourceOverride, StartAt: placedAt.Add(8 * time.Minute)},
	)

	if got := CurrentStatus(entries, placedAt.Add(4*time.Minute)); got != enums.OrderStatusShipped {
		t.Fatalf("expected the first override to hold, got %s", got)
	}
	if got := CurrentStatus(entries, placedAt.Add(20*time.Minute)); got != enums.OrderStatusDelivered {
		t.Fatalf("expected the later override to win, got %s", got)
	}
}

func TestCurrentStatusTieBreaking(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	orderID := uuid.New()

	byRank := []models.OrderStatusEntry{
		{ID: uuid.New(), OrderID: orderID, Status: enums.OrderStatusProcessing, Source: enums.StatusSourceScheduled, StartAt: at},
		{ID: uuid.New(), OrderID: orderID, Status: enums.OrderStatusShipped, Source: enums.StatusSourceScheduled, StartAt: at},
	}
	if got := CurrentStatus(byRank, at); got != enums.OrderStatusShipped {
		t.Fatalf("expected higher rank to win the tie, got %s", got)
	}

	bySource := []models.OrderStatusEntry{
		{ID: uuid.New(), OrderID: orderID, Status: enums.OrderStatusProcessing, Source: enums.StatusSourceScheduled, StartAt: at},
		{ID: uuid.New(), OrderID: orderID, Status: enums.OrderStatusProcessing, Source: enums.StatusSourceOverride, StartAt: at},
	}
	if got := CurrentStatus(bySource, at); got != enums.OrderStatusProcessing {
		t.Fatalf("expected processing, got %s", got)
	}
	best := bestOf(bySource, at)
	if best == nil || best.Source != enums.StatusSourceOverride {
		t.Fatalf("expected override entry to win the tie, got %+v", best)
	}
}

// bestOf mirrors the selection CurrentStatus performs, exposing the winning
// entry so source tie-breaks are observable.
func bestOf(entries []models.OrderStatusEntry, now time.Time) *models.OrderStatusEntry {
	var best *models.OrderStatusEntry
	for i := range entries {
		entry := &entries[i]
		if entry.StartAt.After(now) {
			continue
		}
		if best == nil || betterEntry(entry, best) {
			best = entry
		}
	}
	return best
}

func TestTimelineOrdersByStartTime(t *testing.T) {
	t.Parallel()

	placedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := scheduledTimeline(placedAt)
	shuffled := []models.OrderStatusEntry{entries[3], entries[0], entries[2], entries[1]}

	ordered := Timeline(shuffled)
	want := []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
	}
	for i, status := range want {
		if ordered[i].Status != status {
			t.Fatalf("position %d: expected %s, got %s", i, status, ordered[i].Status)
		}
	}
	if shuffled[0].Status != enums.OrderStatusDelivered {
		t.Fatal("expected Timeline to copy rather than sort in place")
	}
}
