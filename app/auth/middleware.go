package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/linkpagos/ms-go-paylinks/app/types"
)

const principalContextKey = "auth.principal"

// RequireSession authenticates staff requests. The session token comes from
// the Authorization bearer header or the session cookie the dashboard sets.
func RequireSession(verifier Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token == "" {
				return c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "authentication required"})
			}

			principal, err := verifier.VerifySession(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, ErrUnauthorized) {
					return c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "invalid session"})
				}
				return c.JSON(http.StatusBadGateway, types.ErrorResponse{Error: "auth service unavailable"})
			}

			c.Set(principalContextKey, principal)
			return next(c)
		}
	}
}

// PrincipalFromContext returns the authenticated principal, or nil when the
// request skipped the session middleware.
func PrincipalFromContext(c echo.Context) *Principal {
	principal, _ := c.Get(principalContextKey).(*Principal)
	return principal
}

func extractToken(c echo.Context) string {
	header := strings.TrimSpace(c.Request().Header.Get("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}

	if cookie, err := c.Cookie("session_token"); err == nil {
		return strings.TrimSpace(cookie.Value)
	}

	return ""
}
