// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/tm-monitor/internal/model"
)

// AlertSeat is one seat in an availability alert, already rendered for
// display.
type AlertSeat struct {
	Section string `json:"section"`
	Row     string `json:"row"`
	Seat    string `json:"seat"`
	Price   string `json:"price"`
}

// AvailabilityAlert is published when seats become available for a
// monitored event. It carries enough to notify someone without asking
// the monitor for anything else.
type AvailabilityAlert struct {
	AlertID    string      `json:"alert_id"`
	EventID    string      `json:"event_id"`
	EventName  string      `json:"event_name"`
	UpdateType string      `json:"update_type"`
	SeatCount  int         `json:"seat_count"`
	Seats      []AlertSeat `json:"seats"`
	UpdateTime string      `json:"update_time"`
	RaisedAt   string      `json:"raised_at"`
}

// NewAvailabilityAlert builds the alert for one update. id is the
// message id the publisher also stamps on the delivery.
func NewAvailabilityAlert(id, eventName string, u model.AvailabilityUpdate, now time.Time) AvailabilityAlert {
	seats := make([]AlertSeat, 0, len(u.Seats))
	for _, s := range u.Seats {
		seats = append(seats, AlertSeat{
			Section: s.SectionName.Or("Unknown"),
			Row:     s.SectionRow.Or("N/A"),
			Seat:    s.PlaceNumber.Or("N/A"),
			Price:   s.Price.String(),
		})
	}
	return AvailabilityAlert{
		AlertID:    id,
		EventID:    u.EntityID,
		EventName:  eventName,
		UpdateType: string(u.Kind),
		SeatCount:  len(u.Seats),
		Seats:      seats,
		UpdateTime: u.Time().UTC().Format(time.RFC3339),
		RaisedAt:   now.UTC().Format(time.RFC3339),
	}
}
