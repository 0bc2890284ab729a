package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// UpdateKind classifies an availability change.
type UpdateKind string

const (
	// KindAdded means new seats became available.
	KindAdded UpdateKind = "added"
	// KindRemoved means seats are no longer available. The backend has
	// been seen sending "removed", "dropped" and "droped" for this.
	KindRemoved UpdateKind = "removed"
)

// ParseUpdateKind maps every spelling the backend uses onto the two
// canonical kinds.
func ParseUpdateKind(s string) (UpdateKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "added":
		return KindAdded, nil
	case "removed", "dropped", "droped":
		return KindRemoved, nil
	default:
		return "", fmt.Errorf("unknown update kind %q", s)
	}
}

func (k *UpdateKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseUpdateKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// AvailabilityUpdate is one availability change pushed by the backend
// for one entity. Timestamp is epoch seconds.
type AvailabilityUpdate struct {
	EntityID  string      `json:"event_id,omitempty"`
	Kind      UpdateKind  `json:"update_type"`
	Seats     []SeatOffer `json:"seats"`
	Timestamp float64     `json:"timestamp"`
}

// Time returns Timestamp as a time.Time.
func (u AvailabilityUpdate) Time() time.Time { return FromEpochSeconds(u.Timestamp) }
