package middleware

// identity.go wires declared-identity tokens into the request context.
// Handlers read the display name via c.Get("display_name"). The token
// only proves the caller declared that name earlier; it does not
// authenticate anyone (see the identity package).

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/daruji/giveaway/internal/identity"
)

// DeclaredIdentity returns an Echo middleware that requires a valid
// Bearer identity token and injects the declared display name into the
// request context. Routes open to anonymous readers should simply not
// use it.
func DeclaredIdentity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing identity token"})
			}
			name, err := identity.FromToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid identity token"})
			}
			c.Set("display_name", name)
			return next(c)
		}
	}
}
