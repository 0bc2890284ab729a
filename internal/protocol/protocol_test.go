package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/iliyamo/tm-monitor/internal/model"
)

func TestEncodeStampsType(t *testing.T) {
	payload, err := Encode(AddEvent{
		EventURL:  "https://www.ticketmaster.com/event/ab12cd34/the-show",
		EventID:   "ab12cd34",
		EventName: "The Show",
	})
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"type":       "add_event",
		"event_url":  "https://www.ticketmaster.com/event/ab12cd34/the-show",
		"event_id":   "ab12cd34",
		"event_name": "The Show",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}

	payload, err = Encode(Ping{})
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != `{"type":"ping"}` {
		t.Errorf("ping = %s", payload)
	}
}

func TestDecodeKnownKinds(t *testing.T) {
	tests := []struct {
		payload string
		check   func(t *testing.T, m Message)
	}{
		{`{"type":"pong","message":"hi"}`, func(t *testing.T, m Message) {
			if m.(Pong).Message != "hi" {
				t.Errorf("got %+v", m)
			}
		}},
		{`{"type":"ping"}`, func(t *testing.T, m Message) {
			if _, ok := m.(PingReceived); !ok {
				t.Errorf("got %T", m)
			}
		}},
		{`{"type":"event_added","event_id":"ab12cd34","event_name":"The Show","message":"ok"}`, func(t *testing.T, m Message) {
			added := m.(EventAdded)
			if added.EventID != "ab12cd34" || added.EventName != "The Show" {
				t.Errorf("got %+v", added)
			}
		}},
		{`{"type":"monitor_update","event_id":"e1","update_type":"droped","seats":[{"section_name":"A","price":100}],"timestamp":110}`, func(t *testing.T, m Message) {
			u := m.(MonitorUpdate).AvailabilityUpdate
			if u.EntityID != "e1" || u.Kind != model.KindRemoved || len(u.Seats) != 1 || u.Timestamp != 110 {
				t.Errorf("got %+v", u)
			}
		}},
		{`{"type":"connection_status_update","event_id":"e1","status":"weird","message":"m","timestamp":5}`, func(t *testing.T, m Message) {
			cs := m.(ConnectionStatusUpdate).ConnectionStatus()
			if cs.Status != model.ConnUnknown || cs.EntityID != "e1" || cs.Timestamp != 5 {
				t.Errorf("got %+v", cs)
			}
		}},
		{`{"type":"event_update","event_id":"e1","status":"error","data":{"k":1}}`, func(t *testing.T, m Message) {
			u := m.(EventUpdate)
			if u.Status != model.StatusError || string(u.Data) != `{"k":1}` {
				t.Errorf("got %+v", u)
			}
		}},
		{`{"type":"error","message":"bad url"}`, func(t *testing.T, m Message) {
			if m.(ErrorMessage).Message != "bad url" {
				t.Errorf("got %+v", m)
			}
		}},
		{`{"type":"shiny_new_thing","x":1}`, func(t *testing.T, m Message) {
			u, ok := m.(Unknown)
			if !ok || u.Kind() != "shiny_new_thing" {
				t.Errorf("got %#v", m)
			}
		}},
	}
	for _, tt := range tests {
		m, err := Decode([]byte(tt.payload))
		if err != nil {
			t.Fatalf("Decode(%s): %v", tt.payload, err)
		}
		tt.check(t, m)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`{"message":"no type"}`,
		`{"type":7}`,
		`{"type":"monitor_update","update_type":"exploded","seats":[]}`,
	} {
		if _, err := Decode([]byte(payload)); !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%s) err = %v, want ErrMalformed", payload, err)
		}
	}
}
