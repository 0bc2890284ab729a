package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iliyamo/tm-monitor/internal/model"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", srv.Client())
}

func TestConnectionStatuses(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/connection-status" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"status":"success","connection_statuses":{
			"a1":{"status":"connected","message":"Live","timestamp":1700000000.5},
			"b2":{"status":"rate_limited","message":"?","timestamp":1}}}`))
	})
	got, err := c.ConnectionStatuses(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got["a1"].Status != model.ConnConnected || got["a1"].EntityID != "a1" || got["a1"].Timestamp != 1700000000.5 {
		t.Fatalf("a1 = %+v", got["a1"])
	}
	if got["b2"].Status != model.ConnUnknown {
		t.Fatalf("b2 = %+v", got["b2"])
	}
}

func TestNotificationsUsesStoredFormat(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notifications/ab12cd34" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"success","notifications":[
			{"type":"added","seats":[{"section_name":"101","price":4500}],"timestamp":100},
			{"type":"sold_out","seats":[],"timestamp":95},
			{"type":"droped","seats":[],"timestamp":90}]}`))
	})
	got, err := c.Notifications(context.Background(), "ab12cd34")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Kind != model.KindAdded || got[1].Kind != model.KindRemoved {
		t.Fatalf("updates = %+v", got)
	}
	if got[0].EntityID != "ab12cd34" || got[0].Seats[0].Price.String() != "45.00" {
		t.Fatalf("first = %+v", got[0])
	}
}

func TestErrorEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    string
		message string
	}{
		{"status error", http.StatusOK, `{"status":"error","message":"no such event"}`, "no such event"},
		{"http error", http.StatusInternalServerError, `{"status":"error","message":"boom"}`, "boom"},
		{"plain text", http.StatusBadGateway, "upstream down", "upstream down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			})
			err := c.ClearNotifications(context.Background(), "x")
			var be *Error
			if !errors.As(err, &be) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if be.Message != tt.message || be.StatusCode != tt.code {
				t.Fatalf("err = %+v", be)
			}
		})
	}
}

func TestClearNotificationsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := New(srv.URL, srv.Client())
	srv.Close()
	if err := c.ClearNotifications(context.Background(), "x"); err == nil {
		t.Fatal("expected error from closed server")
	}
}

func TestProxies(t *testing.T) {
	var saved []string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"status":"success","proxies":["1.2.3.4:80"]}`))
		case http.MethodPost:
			var body struct {
				Proxies []string `json:"proxies"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Error(err)
			}
			saved = body.Proxies
			w.Write([]byte(`{"status":"success","message":"Saved 2 proxies"}`))
		case http.MethodDelete:
			w.Write([]byte(`{"status":"success","message":"Cleared"}`))
		}
	})
	ctx := context.Background()

	list, err := c.Proxies(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("Proxies = %v, %v", list, err)
	}
	msg, err := c.SaveProxies(ctx, []string{" 1.1.1.1:8080 ", "", "2.2.2.2:3128"})
	if err != nil || msg != "Saved 2 proxies" {
		t.Fatalf("SaveProxies = %q, %v", msg, err)
	}
	if len(saved) != 2 || saved[0] != "1.1.1.1:8080" {
		t.Fatalf("saved = %v", saved)
	}
	if msg, err := c.ClearProxies(ctx); err != nil || msg != "Cleared" {
		t.Fatalf("ClearProxies = %q, %v", msg, err)
	}
}
