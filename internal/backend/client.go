// Package backend is the REST side of the monitoring backend: bulk
// connection statuses, stored notification history and the proxy list.
// Every reply is a JSON object with "status" set to "success" or "error".
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/tm-monitor/internal/model"
)

// maxBody caps how much of a reply is read.
const maxBody = 4 << 20

// Error is a reply with status "error", or a non-2xx reply.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("backend: %s (HTTP %d)", e.Message, e.StatusCode)
}

// Client talks to the backend's REST endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for baseURL, e.g. "http://127.0.0.1:8000".
// A nil httpClient gets a 10 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type wireStatus struct {
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
}

// ConnectionStatuses returns the backend's connection status per event.
func (c *Client) ConnectionStatuses(ctx context.Context) (map[string]model.ConnectionStatus, error) {
	var out struct {
		ConnectionStatuses map[string]wireStatus `json:"connection_statuses"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/connection-status", nil, &out); err != nil {
		return nil, err
	}
	statuses := make(map[string]model.ConnectionStatus, len(out.ConnectionStatuses))
	for id, s := range out.ConnectionStatuses {
		statuses[id] = model.ConnectionStatus{
			EntityID:  id,
			Status:    model.ParseConnectionState(s.Status),
			Message:   s.Message,
			Timestamp: s.Timestamp,
		}
	}
	return statuses, nil
}

// storedNotification is how the backend persists a monitor update.
type storedNotification struct {
	Type      model.UpdateKind  `json:"type"`
	Seats     []model.SeatOffer `json:"seats"`
	Timestamp float64           `json:"timestamp"`
}

// Notifications returns the stored history for one event. Entries that
// do not decode are skipped.
func (c *Client) Notifications(ctx context.Context, eventID string) ([]model.AvailabilityUpdate, error) {
	var out struct {
		Notifications []json.RawMessage `json:"notifications"`
	}
	if err := c.do(ctx, http.MethodGet, notificationsPath(eventID), nil, &out); err != nil {
		return nil, err
	}
	updates := make([]model.AvailabilityUpdate, 0, len(out.Notifications))
	for _, raw := range out.Notifications {
		var n storedNotification
		if err := json.Unmarshal(raw, &n); err != nil {
			continue
		}
		updates = append(updates, model.AvailabilityUpdate{
			EntityID:  eventID,
			Kind:      n.Type,
			Seats:     n.Seats,
			Timestamp: n.Timestamp,
		})
	}
	return updates, nil
}

// ClearNotifications deletes the stored history for one event.
func (c *Client) ClearNotifications(ctx context.Context, eventID string) error {
	return c.do(ctx, http.MethodDelete, notificationsPath(eventID), nil, nil)
}

// Proxies returns the configured proxy list.
func (c *Client) Proxies(ctx context.Context) ([]string, error) {
	var out struct {
		Proxies []string `json:"proxies"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/proxies", nil, &out); err != nil {
		return nil, err
	}
	if out.Proxies == nil {
		out.Proxies = []string{}
	}
	return out.Proxies, nil
}

// SaveProxies replaces the proxy list. Blank lines are dropped. It
// returns the backend's confirmation message.
func (c *Client) SaveProxies(ctx context.Context, proxies []string) (string, error) {
	clean := make([]string, 0, len(proxies))
	for _, p := range proxies {
		if p = strings.TrimSpace(p); p != "" {
			clean = append(clean, p)
		}
	}
	var out envelope
	err := c.do(ctx, http.MethodPost, "/api/proxies", map[string]any{"proxies": clean}, &out)
	return out.Message, err
}

// ClearProxies empties the proxy list.
func (c *Client) ClearProxies(ctx context.Context) (string, error) {
	var out envelope
	err := c.do(ctx, http.MethodDelete, "/api/proxies", nil, &out)
	return out.Message, err
}

func notificationsPath(eventID string) string {
	return "/notifications/" + url.PathEscape(eventID)
}

// do sends one request and decodes a successful reply into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("backend: read %s %s: %w", method, path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode/100 != 2 {
			return &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return fmt.Errorf("backend: decode %s %s: %w", method, path, err)
	}
	if resp.StatusCode/100 != 2 || env.Status != "success" {
		return &Error{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("backend: decode %s %s: %w", method, path, err)
	}
	return nil
}
