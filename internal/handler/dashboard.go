package handler // HTTP handlers for the local dashboard API

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tm-monitor/internal/backend"
	"github.com/iliyamo/tm-monitor/internal/registry"
	"github.com/iliyamo/tm-monitor/internal/session"
)

// Monitor is the session as seen by the dashboard.
type Monitor interface {
	Snapshot() session.Snapshot
	AddEvent(ctx context.Context, url string) (registry.Candidate, error)
	DeleteEvent(ctx context.Context, id string) (bool, error)
	ViewNotifications(ctx context.Context, id string) (session.NotificationView, error)
	ClearNotifications(ctx context.Context, id string) error
	RefreshConnectionStatuses(ctx context.Context) error
	Reconnect(ctx context.Context) (bool, error)
}

// ProxyStore manages the backend's proxy list.
type ProxyStore interface {
	Proxies(ctx context.Context) ([]string, error)
	SaveProxies(ctx context.Context, proxies []string) (string, error)
	ClearProxies(ctx context.Context) (string, error)
}

// DashboardHandler serves the /v1 API.
type DashboardHandler struct {
	Monitor Monitor
	Proxies ProxyStore
}

// NewDashboardHandler panics if monitor is nil. proxies may be nil, in
// which case the proxy routes answer 503.
func NewDashboardHandler(monitor Monitor, proxies ProxyStore) *DashboardHandler {
	if monitor == nil {
		panic("nil monitor passed to NewDashboardHandler")
	}
	return &DashboardHandler{Monitor: monitor, Proxies: proxies}
}

// fail maps domain errors to HTTP status codes.
func fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	var be *backend.Error
	switch {
	case errors.Is(err, registry.ErrInvalidURL):
		status = http.StatusBadRequest
	case errors.Is(err, registry.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, registry.ErrDuplicateURL), errors.Is(err, registry.ErrDuplicateID), errors.Is(err, session.ErrAddInFlight):
		status = http.StatusConflict
	case errors.Is(err, session.ErrNotConnected), errors.Is(err, session.ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.As(err, &be):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	msg := err.Error()
	if errors.Is(err, session.ErrNotConnected) {
		msg = "Connection to backend lost. Attempting to reconnect..."
	}
	return c.JSON(status, echo.Map{"error": msg})
}
