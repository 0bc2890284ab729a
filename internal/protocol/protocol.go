// Package protocol defines the JSON messages exchanged with the
// monitoring backend over the stream connection. Every payload is an
// object with a "type" discriminator; Decode turns inbound payloads into
// one of a closed set of Go types and Encode does the reverse for
// outbound commands.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message kinds on the wire.
const (
	KindAddEvent       = "add_event"
	KindDeleteEvent    = "delete_event"
	KindReconnectEvent = "reconnect_event"
	KindPing           = "ping"
	KindPong           = "pong"

	KindEventAdded             = "event_added"
	KindEventReconnected       = "event_reconnected"
	KindEventUpdate            = "event_update"
	KindEventDeleted           = "event_deleted"
	KindMonitorUpdate          = "monitor_update"
	KindConnectionStatusUpdate = "connection_status_update"
	KindError                  = "error"
)

// ErrMalformed is returned by Decode when a payload is not a JSON object
// with a string "type" field, or when a known kind carries fields of the
// wrong shape.
var ErrMalformed = errors.New("malformed message")

// Command is an outbound message. The set of implementations is closed.
type Command interface {
	Kind() string
	command()
}

// AddEvent asks the backend to start monitoring an event.
type AddEvent struct {
	EventURL  string `json:"event_url"`
	EventID   string `json:"event_id"`
	EventName string `json:"event_name"`
}

// DeleteEvent asks the backend to stop monitoring an event.
type DeleteEvent struct {
	EventID   string `json:"event_id"`
	EventName string `json:"event_name"`
}

// ReconnectEvent re-announces an already confirmed event after the
// stream connection has been re-established.
type ReconnectEvent struct {
	EventURL  string `json:"event_url"`
	EventID   string `json:"event_id"`
	EventName string `json:"event_name"`
}

// Ping is a liveness probe.
type Ping struct {
	Message string `json:"message,omitempty"`
}

func (AddEvent) Kind() string       { return KindAddEvent }
func (DeleteEvent) Kind() string    { return KindDeleteEvent }
func (ReconnectEvent) Kind() string { return KindReconnectEvent }
func (Ping) Kind() string           { return KindPing }

func (AddEvent) command()       {}
func (DeleteEvent) command()    {}
func (ReconnectEvent) command() {}
func (Ping) command()           {}

// Encode serialises a command with its type discriminator.
func Encode(c Command) ([]byte, error) {
	switch m := c.(type) {
	case AddEvent:
		type body AddEvent
		return json.Marshal(struct {
			Type string `json:"type"`
			body
		}{m.Kind(), body(m)})
	case DeleteEvent:
		type body DeleteEvent
		return json.Marshal(struct {
			Type string `json:"type"`
			body
		}{m.Kind(), body(m)})
	case ReconnectEvent:
		type body ReconnectEvent
		return json.Marshal(struct {
			Type string `json:"type"`
			body
		}{m.Kind(), body(m)})
	case Ping:
		type body Ping
		return json.Marshal(struct {
			Type string `json:"type"`
			body
		}{m.Kind(), body(m)})
	default:
		return nil, fmt.Errorf("encode: unsupported command %T", c)
	}
}
