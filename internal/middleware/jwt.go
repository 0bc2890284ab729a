package middleware // reusable HTTP middleware for the dashboard API

import (
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by DashboardAuth.
const (
	CtxSubject = "subject"
	CtxScopes  = "scopes"
)

// DashboardAuth returns an Echo middleware that validates an HS256 Bearer
// token and stores its subject and scopes in the request context. With an
// empty secret the dashboard is unauthenticated and every request gets
// all scopes.
func DashboardAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				c.Set(CtxSubject, "local")
				c.Set(CtxScopes, []string{"*"})
				return next(c)
			}

			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			sub, _ := claims.GetSubject()
			scope, _ := claims["scope"].(string)
			c.Set(CtxSubject, sub)
			c.Set(CtxScopes, strings.Fields(scope))
			return next(c)
		}
	}
}

// RequireScope rejects requests whose token lacks scope with 403. It
// expects DashboardAuth to have run first.
func RequireScope(scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scopes, _ := c.Get(CtxScopes).([]string)
			if !slices.Contains(scopes, scope) && !slices.Contains(scopes, "*") {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
