package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// getDisplayName extracts the declared display name placed in context
// by the identity middleware.
func getDisplayName(c echo.Context) (string, error) {
	if v := c.Get("display_name"); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s, nil
		}
	}
	return "", errors.New("missing display name in context")
}

// itemID parses the :id path parameter.
func itemID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid item id")
	}
	return id, nil
}
