package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/daruji/giveaway/internal/engine"
	"github.com/daruji/giveaway/internal/model"
	"github.com/daruji/giveaway/internal/queue"
	queue_publisher "github.com/daruji/giveaway/internal/service"
)

// ReservationHandler serves the state transitions on a listing:
// reserve, cancel and delete. All methods assume the identity
// middleware already ran; the engine still re-checks authorization
// defensively, so a request that slips past the UI rules is refused
// here rather than trusted.
type ReservationHandler struct {
	Engine *engine.Engine
}

// NewReservationHandler constructs a ReservationHandler. The engine
// must be non-nil.
func NewReservationHandler(eng *engine.Engine) *ReservationHandler {
	if eng == nil {
		panic("nil engine passed to NewReservationHandler")
	}
	return &ReservationHandler{Engine: eng}
}

// Reserve handles POST /v1/items/:id/reserve. On success it returns the
// updated item, including the store-assigned reservation timestamp, and
// publishes an ItemReservedEvent to the broker. Losing the race to
// another reserver yields 409, same as reserving an already-taken item.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	name, err := getDisplayName(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := itemID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	it, err := h.Engine.Reserve(c.Request().Context(), id, name)
	if err != nil {
		return transitionError(c, err, "reserve failed")
	}
	publishReserved(it)
	return c.JSON(http.StatusOK, it)
}

// CancelReservation handles DELETE /v1/items/:id/reservation. Only the
// owner may cancel; the reservation fields are cleared together and the
// updated item is returned.
func (h *ReservationHandler) CancelReservation(c echo.Context) error {
	name, err := getDisplayName(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := itemID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	it, err := h.Engine.CancelReservation(c.Request().Context(), id, name)
	if err != nil {
		return transitionError(c, err, "cancel failed")
	}
	return c.JSON(http.StatusOK, it)
}

// DeleteItem handles DELETE /v1/items/:id. Only the owner may delete; a
// successful deletion returns 204 No Content and pre-empts any
// reservation on the item.
func (h *ReservationHandler) DeleteItem(c echo.Context) error {
	name, err := getDisplayName(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := itemID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	if err := h.Engine.Delete(c.Request().Context(), id, name); err != nil {
		return transitionError(c, err, "delete failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// transitionError maps the engine's failure taxonomy onto HTTP status
// codes with the engine's message, falling back to a generic 500.
func transitionError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, engine.ErrItemNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
	case errors.Is(err, engine.ErrUnauthorized):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, engine.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, engine.ErrValidationFailed):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
	}
}

// publishReserved pushes the event to the broker in the background.
// Publishing dials per event, so it stays off the request path; errors
// are logged inside the publisher and ignored here.
func publishReserved(it *model.Item) {
	ev := queue.ItemReservedEvent{
		ItemID:     it.ID,
		Title:      it.Title,
		Owner:      it.Owner,
		ReservedBy: it.ReservedBy,
	}
	if it.ReservedAt != nil {
		ev.ReservedAt = it.ReservedAt.UTC().Format(time.RFC3339)
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishItemReserved(ctx, ev)
	}()
}
