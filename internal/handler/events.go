package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tm-monitor/internal/session"
)

// Status returns the connection state, in-flight add and latest notice.
func (h *DashboardHandler) Status(c echo.Context) error {
	snap := h.Monitor.Snapshot()
	return c.JSON(http.StatusOK, echo.Map{
		"connection":  snap.Connection,
		"adding":      snap.Adding,
		"pending_url": snap.PendingURL,
		"notice":      snap.Notice,
		"events":      len(snap.Events),
		"rendered_at": snap.RenderedAt,
	})
}

// ListEvents returns the monitored events in display order.
func (h *DashboardHandler) ListEvents(c echo.Context) error {
	events := h.Monitor.Snapshot().Events
	if events == nil {
		events = []session.EventView{}
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

type addEventRequest struct {
	URL string `json:"url"`
}

// AddEvent asks the backend to monitor a URL. The event shows up once the
// backend confirms, so success is 202.
func (h *DashboardHandler) AddEvent(c echo.Context) error {
	var req addEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "url is required"})
	}
	cand, err := h.Monitor.AddEvent(c.Request().Context(), req.URL)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{
		"status":   "pending",
		"event_id": cand.ID,
		"name":     cand.Name,
		"url":      cand.URL,
	})
}

// DeleteEvent removes an event locally; backend_notified tells whether the
// backend heard about it.
func (h *DashboardHandler) DeleteEvent(c echo.Context) error {
	notified, err := h.Monitor.DeleteEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": true, "backend_notified": notified})
}

// ViewNotifications returns the grouped notification feed of an event.
func (h *DashboardHandler) ViewNotifications(c echo.Context) error {
	view, err := h.Monitor.ViewNotifications(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// ClearNotifications deletes an event's notifications on the backend and
// locally.
func (h *DashboardHandler) ClearNotifications(c echo.Context) error {
	if err := h.Monitor.ClearNotifications(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RefreshConnectionStatuses pulls every connection status from the backend.
func (h *DashboardHandler) RefreshConnectionStatuses(c echo.Context) error {
	if err := h.Monitor.RefreshConnectionStatuses(c.Request().Context()); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Reconnect restarts the connection after retries ran out. 409 when the
// session was not in the lost state.
func (h *DashboardHandler) Reconnect(c echo.Context) error {
	ok, err := h.Monitor.Reconnect(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	if !ok {
		return c.JSON(http.StatusConflict, echo.Map{"error": "connection is not lost"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"status": "reconnecting"})
}
