package notify

import (
	"cmp"
	"slices"

	"github.com/iliyamo/tm-monitor/internal/model"
)

// DefaultWindow is the grouping window in seconds.
const DefaultWindow = 30.0

// Group is a cluster of updates of the same kind for one entity whose
// timestamps lie within the grouping window of each other. Groups are
// derived on demand and never stored.
type Group struct {
	Kind      model.UpdateKind  `json:"update_type"`
	Timestamp float64           `json:"timestamp"`
	Seats     []model.SeatOffer `json:"seats"`
}

// GroupUpdates clusters updates. Updates are visited newest first and
// each one joins the first group of its kind whose timestamp is within
// window seconds, otherwise it starts a new group. Membership therefore
// depends on the sorted order (first match, not best match). The result
// is sorted newest first.
func GroupUpdates(updates []model.AvailabilityUpdate, window float64) []Group {
	sorted := slices.Clone(updates)
	sortNewestFirst(sorted)

	var groups []Group
	for _, u := range sorted {
		i := slices.IndexFunc(groups, func(g Group) bool {
			return g.Kind == u.Kind && abs(g.Timestamp-u.Timestamp) <= window
		})
		if i < 0 {
			groups = append(groups, Group{
				Kind:      u.Kind,
				Timestamp: u.Timestamp,
				Seats:     slices.Clone(u.Seats),
			})
			continue
		}
		groups[i].Seats = append(groups[i].Seats, u.Seats...)
		groups[i].Timestamp = max(groups[i].Timestamp, u.Timestamp)
	}

	slices.SortStableFunc(groups, func(a, b Group) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
	return groups
}

// Flatten turns each group back into a single update.
func Flatten(entityID string, groups []Group) []model.AvailabilityUpdate {
	out := make([]model.AvailabilityUpdate, 0, len(groups))
	for _, g := range groups {
		out = append(out, model.AvailabilityUpdate{
			EntityID:  entityID,
			Kind:      g.Kind,
			Seats:     slices.Clone(g.Seats),
			Timestamp: g.Timestamp,
		})
	}
	return out
}

func sortNewestFirst(updates []model.AvailabilityUpdate) {
	slices.SortStableFunc(updates, func(a, b model.AvailabilityUpdate) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
