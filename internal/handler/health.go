package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports that the process is up, along with the stream
// connection state. It answers 200 even while the backend is unreachable.
func (h *DashboardHandler) Health(c echo.Context) error {
	snap := h.Monitor.Snapshot()
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "connection": snap.Connection.State})
}
