package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type saveProxiesRequest struct {
	Proxies []string `json:"proxies"`
}

var errNoProxies = echo.Map{"error": "proxy management unavailable"}

// ListProxies returns the backend's proxy list.
func (h *DashboardHandler) ListProxies(c echo.Context) error {
	if h.Proxies == nil {
		return c.JSON(http.StatusServiceUnavailable, errNoProxies)
	}
	list, err := h.Proxies.Proxies(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"proxies": list})
}

// SaveProxies replaces the proxy list.
func (h *DashboardHandler) SaveProxies(c echo.Context) error {
	if h.Proxies == nil {
		return c.JSON(http.StatusServiceUnavailable, errNoProxies)
	}
	var req saveProxiesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	msg, err := h.Proxies.SaveProxies(c.Request().Context(), req.Proxies)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// ClearProxies empties the proxy list.
func (h *DashboardHandler) ClearProxies(c echo.Context) error {
	if h.Proxies == nil {
		return c.JSON(http.StatusServiceUnavailable, errNoProxies)
	}
	msg, err := h.Proxies.ClearProxies(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}
