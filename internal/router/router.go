package router // package router registers the dashboard API routes

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tm-monitor/internal/handler"
	"github.com/iliyamo/tm-monitor/internal/middleware"
)

// ControlScope is the token scope required by mutating routes.
const ControlScope = "control"

// RegisterRoutes mounts the health check and the /v1 dashboard API. When
// jwtSecret is empty /v1 is open; otherwise every /v1 route needs a valid
// token and routes that change state also need the control scope.
func RegisterRoutes(e *echo.Echo, h *handler.DashboardHandler, jwtSecret string) {
	e.GET("/healthz", h.Health)

	g := e.Group("/v1", middleware.DashboardAuth(jwtSecret))
	control := middleware.RequireScope(ControlScope)

	g.GET("/status", h.Status)
	g.GET("/events", h.ListEvents)
	g.POST("/events", h.AddEvent, control)
	g.DELETE("/events/:id", h.DeleteEvent, control)

	// Viewing marks notifications as seen, which is why it is a read
	// route that still changes state.
	g.GET("/events/:id/notifications", h.ViewNotifications)
	g.DELETE("/events/:id/notifications", h.ClearNotifications, control)

	g.POST("/connection-status/refresh", h.RefreshConnectionStatuses, control)
	g.POST("/reconnect", h.Reconnect, control)

	g.GET("/proxies", h.ListProxies)
	g.POST("/proxies", h.SaveProxies, control)
	g.DELETE("/proxies", h.ClearProxies, control)
}
