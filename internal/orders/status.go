package orders

import (
	"sort"
	"time"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db/models"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/enums"
)

// CurrentStatus resolves an order's status from its timeline at the given
// instant. The elapsed entry with the latest start time wins; ties go to the
// higher lifecycle rank, then to override entries over scheduled ones. An
// elapsed administrative override supersedes scheduled entries that start
// after it, so the precomputed schedule never walks the status back. An
// elapsed cancellation is terminal regardless of later scheduled entries.
// With no elapsed entry the order is still pending.
func CurrentStatus(entries []models.OrderStatusEntry, now time.Time) enums.OrderStatus {
	override := latestOverride(entries, now)

	var best *models.OrderStatusEntry
	for i := range entries {
		entry := &entries[i]
		if entry.StartAt.After(now) {
			continue
		}
		if override != nil && entry.Source == enums.StatusSourceScheduled && entry.StartAt.After(override.StartAt) {
			continue
		}
		if entry.Status == enums.OrderStatusCancelled {
			return enums.OrderStatusCancelled
		}
		if best == nil || betterEntry(entry, best) {
			best = entry
		}
	}
	if best == nil {
		return enums.OrderStatusPending
	}
	return best.Status
}

func latestOverride(entries []models.OrderStatusEntry, now time.Time) *models.OrderStatusEntry {
	var latest *models.OrderStatusEntry
	for i := range entries {
		entry := &entries[i]
		if entry.Source != enums.StatusSourceOverride || entry.StartAt.After(now) {
			continue
		}
		if latest == nil || betterEntry(entry, latest) {
			latest = entry
		}
	}
	return latest
}

func betterEntry(candidate, incumbent *models.OrderStatusEntry) bool {
	if !candidate.StartAt.Equal(incumbent.StartAt) {
		return candidate.StartAt.After(incumbent.StartAt)
	}
	candidateRank, _ := candidate.Status.Rank()
	incumbentRank, _ := incumbent.Status.Rank()
	if candidateRank != incumbentRank {
		return candidateRank > incumbentRank
	}
	return candidate.Source == enums.StatusSourceOverride &&
		incumbent.Source == enums.StatusSourceScheduled
}

// Timeline returns a copy of the entries ordered by start time; rank breaks
// exact ties so the progression reads in lifecycle order.
func Timeline(entries []models.OrderStatusEntry) []models.OrderStatusEntry {
	out := make([]models.OrderStatusEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].StartAt.Before(out[j].StartAt)
		}
		ri, _ := out[i].Status.Rank()
		rj, _ := out[j].Status.Rank()
		return ri < rj
	})
	return out
}
