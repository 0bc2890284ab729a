package notify

import "github.com/iliyamo/tm-monitor/internal/model"

// SeatLine is one row of a rendered notification group.
type SeatLine struct {
	Section     string `json:"section"`
	Row         string `json:"row"`
	Seat        string `json:"seat"`
	Price       string `json:"price"`
	Description string `json:"description"`
}

// GroupView is a Group prepared for display.
type GroupView struct {
	Kind      model.UpdateKind `json:"update_type"`
	Label     string           `json:"label"`
	Timestamp float64          `json:"timestamp"`
	SeatCount int              `json:"seat_count"`
	Seats     []SeatLine       `json:"seats"`
}

// Render converts groups for display.
func Render(groups []Group) []GroupView {
	out := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		label := "Available"
		if g.Kind == model.KindRemoved {
			label = "No Longer Available"
		}
		lines := make([]SeatLine, 0, len(g.Seats))
		for _, s := range g.Seats {
			lines = append(lines, SeatLine{
				Section:     s.SectionName.Or("Unknown"),
				Row:         s.SectionRow.Or("N/A"),
				Seat:        s.PlaceNumber.Or("N/A"),
				Price:       s.Price.String(),
				Description: s.OfferDescription.Or("N/A"),
			})
		}
		out = append(out, GroupView{
			Kind:      g.Kind,
			Label:     label,
			Timestamp: g.Timestamp,
			SeatCount: len(g.Seats),
			Seats:     lines,
		})
	}
	return out
}
