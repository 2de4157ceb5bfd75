package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/daruji/giveaway/internal/projector"
	"github.com/daruji/giveaway/internal/stream"
)

// StreamHandler exposes the live snapshot subscription over
// server-sent events. Each event carries the complete item set; the
// client replaces its state wholesale instead of patching.
type StreamHandler struct {
	Hub *stream.Hub
}

// NewStreamHandler constructs a StreamHandler. The hub must be non-nil.
func NewStreamHandler(hub *stream.Hub) *StreamHandler {
	if hub == nil {
		panic("nil hub passed to NewStreamHandler")
	}
	return &StreamHandler{Hub: hub}
}

// StreamItems handles GET /v1/items/stream. It emits one "snapshot"
// event immediately and another for every store change until the client
// disconnects. Snapshots carry the same shape as GET /v1/items.
func (h *StreamHandler) StreamItems(c echo.Context) error {
	ctx := c.Request().Context()
	sub, cancel, err := h.Hub.Subscribe(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	defer cancel()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(echo.Map{
				"items":     projector.AllItems(snap),
				"available": projector.AvailableCount(snap),
				"reserved":  projector.ReservedCount(snap),
			})
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(resp, "event: snapshot\ndata: %s\n\n", payload); err != nil {
				return nil // client went away
			}
			resp.Flush()
		}
	}
}
