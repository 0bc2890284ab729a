package model

import (
	"encoding/json"
	"time"
)

// EntityStatus is the lifecycle status the backend reports for a
// monitored event.
type EntityStatus string

const (
	StatusMonitoring EntityStatus = "monitoring"
	StatusError      EntityStatus = "error"
)

// MonitoredEntity is one ticketed event being watched for seat
// availability.  Entities are owned by the registry and persisted as an
// ordered list; insertion order is display order.
//
// Fields:
//  ID         – unique identifier taken from the /event/<id> path segment.
//  URL        – the source URL the user added; unique across the list.
//  Name       – human readable name.
//  Status     – lifecycle status (monitoring, error).
//  AddedAt    – when the backend confirmed the entity.
//  LastUpdate – when the backend last pushed an event_update.
//  Data       – opaque payload attached to the last event_update.
type MonitoredEntity struct {
	ID         string          `json:"id"`
	URL        string          `json:"url"`
	Name       string          `json:"name"`
	Status     EntityStatus    `json:"status"`
	AddedAt    time.Time       `json:"addedAt"`
	LastUpdate *time.Time      `json:"lastUpdate,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}
