// Package notify turns the raw stream of availability updates into the
// per-event notification feed: a bounded log per event, unseen/viewed
// flags, a one-time merge of the backend's stored history and the
// time-window grouping used for display.
//
// An Aggregator is not safe for concurrent use; the session loop owns it.
package notify

import (
	"cmp"
	"slices"

	"github.com/iliyamo/tm-monitor/internal/model"
)

// DefaultCapacity is the number of updates kept per event.
const DefaultCapacity = 50

// Aggregator stores updates per entity.
type Aggregator struct {
	capacity int
	window   float64

	logs          map[string][]model.AvailabilityUpdate
	unseen        map[string]bool
	viewed        map[string]bool
	historyLoaded map[string]bool
}

// NewAggregator returns an empty aggregator. Non-positive arguments fall
// back to DefaultCapacity and DefaultWindow.
func NewAggregator(capacity int, window float64) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Aggregator{
		capacity:      capacity,
		window:        window,
		logs:          make(map[string][]model.AvailabilityUpdate),
		unseen:        make(map[string]bool),
		viewed:        make(map[string]bool),
		historyLoaded: make(map[string]bool),
	}
}

// Record appends an update to its entity's log, evicting the oldest
// entries beyond capacity, and flags the entity as having unseen
// notifications.
func (a *Aggregator) Record(u model.AvailabilityUpdate) {
	log := append(a.logs[u.EntityID], u)
	if over := len(log) - a.capacity; over > 0 {
		log = slices.Delete(log, 0, over)
	}
	a.logs[u.EntityID] = log
	a.unseen[u.EntityID] = true
	a.viewed[u.EntityID] = false
}

// HistoryLoaded reports whether the backend history for id has already
// been merged (or its fetch attempted) this session.
func (a *Aggregator) HistoryLoaded(id string) bool { return a.historyLoaded[id] }

// MergeHistory folds the backend's stored updates for id into the log
// once per session. Entries identical to ones already buffered are
// skipped, the log is re-ordered by timestamp and trimmed to capacity,
// oldest first. A nil history marks a failed fetch as attempted. It
// reports whether anything was merged.
func (a *Aggregator) MergeHistory(id string, history []model.AvailabilityUpdate) bool {
	if a.historyLoaded[id] {
		return false
	}
	a.historyLoaded[id] = true
	if len(history) == 0 {
		return false
	}

	merged := slices.Clone(a.logs[id])
	for _, h := range history {
		h.EntityID = id
		if !slices.ContainsFunc(merged, func(u model.AvailabilityUpdate) bool { return sameUpdate(u, h) }) {
			merged = append(merged, h)
		}
	}
	slices.SortStableFunc(merged, func(x, y model.AvailabilityUpdate) int {
		return cmp.Compare(x.Timestamp, y.Timestamp)
	})
	if over := len(merged) - a.capacity; over > 0 {
		merged = slices.Delete(merged, 0, over)
	}
	a.logs[id] = merged
	return true
}

// MarkViewed records that the user opened id's notifications. The log
// itself is kept.
func (a *Aggregator) MarkViewed(id string) {
	a.viewed[id] = true
	a.unseen[id] = false
}

// Clear removes the entries in seen from id's log, one match per entry.
// Callers pass the log as it was when they asked the backend to delete
// its copy, and only invoke Clear once the backend confirmed. Updates
// recorded in between are kept and stay unseen.
func (a *Aggregator) Clear(id string, seen []model.AvailabilityUpdate) {
	seen = slices.Clone(seen)
	var kept []model.AvailabilityUpdate
	for _, u := range a.logs[id] {
		i := slices.IndexFunc(seen, func(s model.AvailabilityUpdate) bool { return sameUpdate(s, u) })
		if i >= 0 {
			seen = slices.Delete(seen, i, i+1)
			continue
		}
		kept = append(kept, u)
	}
	a.logs[id] = kept
	if len(kept) == 0 {
		a.unseen[id] = false
		a.viewed[id] = true
	}
}

// Forget drops everything held for id.
func (a *Aggregator) Forget(id string) {
	delete(a.logs, id)
	delete(a.unseen, id)
	delete(a.viewed, id)
	delete(a.historyLoaded, id)
}

// Updates returns id's log, newest first.
func (a *Aggregator) Updates(id string) []model.AvailabilityUpdate {
	out := slices.Clone(a.logs[id])
	sortNewestFirst(out)
	return out
}

// Groups returns id's log grouped for display.
func (a *Aggregator) Groups(id string) []Group {
	return GroupUpdates(a.logs[id], a.window)
}

// Count returns the number of updates held for id.
func (a *Aggregator) Count(id string) int { return len(a.logs[id]) }

// HasUnseen reports whether id has notifications the user has not opened.
func (a *Aggregator) HasUnseen(id string) bool { return a.unseen[id] }

// Viewed reports whether the user opened id's notifications since the
// last update arrived.
func (a *Aggregator) Viewed(id string) bool { return a.viewed[id] }

func sameUpdate(x, y model.AvailabilityUpdate) bool {
	return x.Kind == y.Kind && x.Timestamp == y.Timestamp && slices.Equal(x.Seats, y.Seats)
}
