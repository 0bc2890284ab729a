package model

import "time"

// ConnectionState is the backend's view of its own scraping connection
// for one entity.
type ConnectionState string

const (
	ConnConnecting   ConnectionState = "connecting"
	ConnConnected    ConnectionState = "connected"
	ConnDisconnected ConnectionState = "disconnected"
	ConnError        ConnectionState = "error"
	ConnUnknown      ConnectionState = "unknown"
)

// ParseConnectionState maps a wire value to a ConnectionState. Values the
// client does not know about become ConnUnknown.
func ParseConnectionState(s string) ConnectionState {
	switch st := ConnectionState(s); st {
	case ConnConnecting, ConnConnected, ConnDisconnected, ConnError:
		return st
	default:
		return ConnUnknown
	}
}

// ConnectionStatus is the latest connection status for one entity.
// Timestamp is epoch seconds as sent by the backend.
type ConnectionStatus struct {
	EntityID  string          `json:"event_id,omitempty"`
	Status    ConnectionState `json:"status"`
	Message   string          `json:"message"`
	Timestamp float64         `json:"timestamp"`
}

// InitialConnectionStatus is the status assumed for an entity the
// backend has not reported on yet.
func InitialConnectionStatus(entityID, message string, now time.Time) ConnectionStatus {
	return ConnectionStatus{
		EntityID:  entityID,
		Status:    ConnConnecting,
		Message:   message,
		Timestamp: EpochSeconds(now),
	}
}

// EpochSeconds converts t to fractional seconds since the Unix epoch.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// FromEpochSeconds is the inverse of EpochSeconds.
func FromEpochSeconds(ts float64) time.Time {
	return time.Unix(0, int64(ts*float64(time.Second))).UTC()
}
