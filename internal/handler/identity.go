package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/daruji/giveaway/internal/identity"
)

// IdentityHandler issues declared-identity tokens. There is no account
// to create and nothing to verify: declaring a name is the whole
// ceremony, matching the original's "how should we call you?" prompt.
type IdentityHandler struct {
	Secret  string // signing secret for identity tokens
	TTLDays int    // token lifetime in days
}

// Declare handles POST /v1/identity. The request body must contain a
// JSON object with a non-empty "display_name". It returns 201 Created
// with the token the client should persist locally and replay as a
// Bearer header.
func (h *IdentityHandler) Declare(c echo.Context) error {
	var body struct {
		DisplayName string `json:"display_name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	token, exp, err := identity.Declare(h.Secret, body.DisplayName, h.TTLDays)
	if err != nil {
		if errors.Is(err, identity.ErrEmptyName) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "display_name is required"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue identity token"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"token":        token,
		"display_name": strings.TrimSpace(body.DisplayName),
		"expires_at":   exp.Format(time.RFC3339),
	})
}
