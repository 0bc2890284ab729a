package notify

import (
	"testing"

	"github.com/iliyamo/tm-monitor/internal/model"
)

func TestRecordEvictsOldestFirst(t *testing.T) {
	a := NewAggregator(0, 0)
	for i := 0; i < 120; i++ {
		a.Record(update(model.KindAdded, float64(i), "s"))
		if a.Count("e1") > DefaultCapacity {
			t.Fatalf("log grew to %d", a.Count("e1"))
		}
	}
	got := a.Updates("e1")
	if len(got) != DefaultCapacity {
		t.Fatalf("len = %d, want %d", len(got), DefaultCapacity)
	}
	if got[0].Timestamp != 119 || got[len(got)-1].Timestamp != 70 {
		t.Fatalf("kept range %v..%v, want 119..70", got[0].Timestamp, got[len(got)-1].Timestamp)
	}
}

func TestEvictionIsByArrivalNotTimestamp(t *testing.T) {
	a := NewAggregator(2, 0)
	a.Record(update(model.KindAdded, 500, "late-stamp"))
	a.Record(update(model.KindAdded, 10, "b"))
	a.Record(update(model.KindAdded, 20, "c"))
	got := a.Updates("e1")
	if len(got) != 2 || got[0].Timestamp != 20 || got[1].Timestamp != 10 {
		t.Fatalf("updates = %+v", got)
	}
}

func TestViewFlags(t *testing.T) {
	a := NewAggregator(0, 0)
	a.Record(update(model.KindAdded, 1, "s"))
	if !a.HasUnseen("e1") || a.Viewed("e1") {
		t.Fatal("new update should be unseen and not viewed")
	}
	a.MarkViewed("e1")
	if a.HasUnseen("e1") || !a.Viewed("e1") {
		t.Fatal("MarkViewed did not update flags")
	}
	if a.Count("e1") != 1 {
		t.Fatal("viewing cleared the log")
	}
	a.Record(update(model.KindAdded, 2, "s"))
	if !a.HasUnseen("e1") || a.Viewed("e1") {
		t.Fatal("update after viewing should reset flags")
	}
}

func TestMergeHistoryOnce(t *testing.T) {
	a := NewAggregator(0, 0)
	live := update(model.KindAdded, 300, "live")
	a.Record(live)

	history := []model.AvailabilityUpdate{
		update(model.KindAdded, 300, "live"), // same as the buffered one
		update(model.KindRemoved, 100, "old"),
		update(model.KindAdded, 200, "mid"),
	}
	if !a.MergeHistory("e1", history) {
		t.Fatal("first merge reported nothing merged")
	}
	got := a.Updates("e1")
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (duplicate skipped): %+v", len(got), got)
	}
	if got[0].Timestamp != 300 || got[1].Timestamp != 200 || got[2].Timestamp != 100 {
		t.Fatalf("not sorted newest first: %+v", got)
	}
	if a.MergeHistory("e1", []model.AvailabilityUpdate{update(model.KindAdded, 400, "x")}) {
		t.Fatal("second merge applied")
	}
	if a.Count("e1") != 3 {
		t.Fatal("second merge changed the log")
	}
}

func TestMergeHistoryRespectsCapacity(t *testing.T) {
	a := NewAggregator(3, 0)
	a.Record(update(model.KindAdded, 50, "live"))
	a.MergeHistory("e1", []model.AvailabilityUpdate{
		update(model.KindAdded, 10, "a"),
		update(model.KindAdded, 20, "b"),
		update(model.KindAdded, 30, "c"),
	})
	got := a.Updates("e1")
	if len(got) != 3 || got[2].Timestamp != 20 {
		t.Fatalf("updates = %+v", got)
	}
}

func TestFailedHistoryFetchMarksAttempted(t *testing.T) {
	a := NewAggregator(0, 0)
	a.MergeHistory("e1", nil)
	if !a.HistoryLoaded("e1") {
		t.Fatal("attempt not recorded")
	}
}

func TestClearAndForget(t *testing.T) {
	a := NewAggregator(0, 0)
	a.Record(update(model.KindAdded, 1, "s"))
	a.Clear("e1", a.Updates("e1"))
	if a.Count("e1") != 0 || a.HasUnseen("e1") {
		t.Fatal("Clear left state behind")
	}
	a.Record(update(model.KindAdded, 2, "s"))
	a.MergeHistory("e1", nil)
	a.Forget("e1")
	if a.Count("e1") != 0 || a.HistoryLoaded("e1") {
		t.Fatal("Forget left state behind")
	}
}

func TestClearKeepsLaterUpdates(t *testing.T) {
	a := NewAggregator(0, 0)
	a.Record(update(model.KindAdded, 1, "s"))
	a.Record(update(model.KindAdded, 1, "s"))
	seen := a.Updates("e1")
	a.Record(update(model.KindAdded, 1, "s"))
	a.Record(update(model.KindRemoved, 2, "t"))

	a.Clear("e1", seen)
	if a.Count("e1") != 2 || !a.HasUnseen("e1") {
		t.Fatalf("after clear count = %d unseen = %v, want 2 true", a.Count("e1"), a.HasUnseen("e1"))
	}
	if got := a.Updates("e1"); got[0].Kind != model.KindRemoved || got[1].Timestamp != 1 {
		t.Fatalf("kept = %+v", got)
	}
}

func TestRenderDefaults(t *testing.T) {
	views := Render([]Group{{
		Kind:      model.KindRemoved,
		Timestamp: 9,
		Seats:     []model.SeatOffer{{Price: model.PriceOf(4599)}},
	}})
	v := views[0]
	if v.Label != "No Longer Available" || v.SeatCount != 1 {
		t.Fatalf("view = %+v", v)
	}
	line := v.Seats[0]
	if line.Section != "Unknown" || line.Row != "N/A" || line.Seat != "N/A" || line.Price != "45.99" || line.Description != "N/A" {
		t.Fatalf("line = %+v", line)
	}
}
