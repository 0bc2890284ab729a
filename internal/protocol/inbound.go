package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/iliyamo/tm-monitor/internal/model"
)

// Message is an inbound message. The set of implementations is closed;
// kinds the client does not recognise decode to Unknown.
type Message interface {
	Kind() string
	message()
}

// PingReceived is an unsolicited probe from the backend.
type PingReceived struct {
	Message string `json:"message"`
}

// Pong answers a probe.
type Pong struct {
	Message string `json:"message"`
}

// EventAdded confirms an add_event.
type EventAdded struct {
	EventID   string `json:"event_id"`
	EventName string `json:"event_name"`
	Message   string `json:"message"`
}

// EventReconnected acknowledges a reconnect_event.
type EventReconnected struct {
	EventID string `json:"event_id"`
}

// EventUpdate carries a lifecycle status change for one event.
type EventUpdate struct {
	EventID string             `json:"event_id"`
	Status  model.EntityStatus `json:"status"`
	Data    json.RawMessage    `json:"data,omitempty"`
}

// EventDeleted acknowledges a delete_event.
type EventDeleted struct {
	EventName string `json:"event_name"`
	Message   string `json:"message"`
}

// MonitorUpdate is a seat availability change.
type MonitorUpdate struct {
	model.AvailabilityUpdate
}

// ConnectionStatusUpdate reports the backend's connection state for one
// event.
type ConnectionStatusUpdate struct {
	EventID   string  `json:"event_id"`
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
}

// ErrorMessage is a backend-reported failure.
type ErrorMessage struct {
	Message string `json:"message"`
}

// Unknown is any message whose type the client does not handle.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (PingReceived) Kind() string           { return KindPing }
func (Pong) Kind() string                   { return KindPong }
func (EventAdded) Kind() string             { return KindEventAdded }
func (EventReconnected) Kind() string       { return KindEventReconnected }
func (EventUpdate) Kind() string            { return KindEventUpdate }
func (EventDeleted) Kind() string           { return KindEventDeleted }
func (MonitorUpdate) Kind() string          { return KindMonitorUpdate }
func (ConnectionStatusUpdate) Kind() string { return KindConnectionStatusUpdate }
func (ErrorMessage) Kind() string           { return KindError }
func (u Unknown) Kind() string              { return u.Type }

func (PingReceived) message()           {}
func (Pong) message()                   {}
func (EventAdded) message()             {}
func (EventReconnected) message()       {}
func (EventUpdate) message()            {}
func (EventDeleted) message()           {}
func (MonitorUpdate) message()          {}
func (ConnectionStatusUpdate) message() {}
func (ErrorMessage) message()           {}
func (Unknown) message()                {}

// ConnectionStatus converts the update into the registry's model.
func (m ConnectionStatusUpdate) ConnectionStatus() model.ConnectionStatus {
	return model.ConnectionStatus{
		EntityID:  m.EventID,
		Status:    model.ParseConnectionState(m.Status),
		Message:   m.Message,
		Timestamp: m.Timestamp,
	}
}

// Decode parses one inbound payload. Only payloads that are not JSON
// objects, lack a string type, or carry badly shaped fields for a known
// kind produce an error; unknown kinds decode to Unknown.
func Decode(payload []byte) (Message, error) {
	var envelope struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if envelope.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	var msg Message
	var err error
	switch kind := *envelope.Type; kind {
	case KindPing:
		msg, err = decodeAs[PingReceived](payload)
	case KindPong:
		msg, err = decodeAs[Pong](payload)
	case KindEventAdded:
		msg, err = decodeAs[EventAdded](payload)
	case KindEventReconnected:
		msg, err = decodeAs[EventReconnected](payload)
	case KindEventUpdate:
		msg, err = decodeAs[EventUpdate](payload)
	case KindEventDeleted:
		msg, err = decodeAs[EventDeleted](payload)
	case KindMonitorUpdate:
		msg, err = decodeAs[MonitorUpdate](payload)
	case KindConnectionStatusUpdate:
		msg, err = decodeAs[ConnectionStatusUpdate](payload)
	case KindError:
		msg, err = decodeAs[ErrorMessage](payload)
	default:
		return Unknown{Type: kind, Raw: append(json.RawMessage(nil), payload...)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, *envelope.Type, err)
	}
	return msg, nil
}

func decodeAs[T Message](payload []byte) (Message, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return v, nil
}
