package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/daruji/giveaway/internal/engine"
	"github.com/daruji/giveaway/internal/model"
	"github.com/daruji/giveaway/internal/projector"
	"github.com/daruji/giveaway/internal/repository"
)

// ReadStore is the read side of the item store serving the listing
// endpoints. It is satisfied by *repository.ItemRepo.
type ReadStore interface {
	Snapshot(ctx context.Context) ([]model.Item, error)
	GetByID(ctx context.Context, id uint64) (*model.Item, error)
}

// ItemHandler serves the listing endpoints. Reads go straight to the
// store and through the projector so every response reflects the
// store's current state; writes go through the reservation engine.
type ItemHandler struct {
	Engine *engine.Engine
	Store  ReadStore
}

// NewItemHandler constructs a new ItemHandler. Both dependencies must
// be non-nil.
func NewItemHandler(eng *engine.Engine, store ReadStore) *ItemHandler {
	if eng == nil || store == nil {
		panic("nil dependency passed to NewItemHandler")
	}
	return &ItemHandler{Engine: eng, Store: store}
}

// ListItems handles GET /v1/items. It returns the full snapshot ordered
// newest first, together with the available/reserved counters shown on
// the board's dashboard tiles.
func (h *ItemHandler) ListItems(c echo.Context) error {
	snap, err := h.Store.Snapshot(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     projector.AllItems(snap),
		"available": projector.AvailableCount(snap),
		"reserved":  projector.ReservedCount(snap),
	})
}

// MyItems handles GET /v1/items/mine. It returns the caller's own
// listings, order preserved from the full listing.
func (h *ItemHandler) MyItems(c echo.Context) error {
	name, err := getDisplayName(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	snap, err := h.Store.Snapshot(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": projector.MyItems(snap, name)})
}

// GetItem handles GET /v1/items/:id and returns a single listing.
func (h *ItemHandler) GetItem(c echo.Context) error {
	id, err := itemID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	it, err := h.Store.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, it)
}

// CreateItem handles POST /v1/items. The body carries the draft fields;
// the owner is the declared identity, and the id and created_at come
// back store-assigned. Returns 201 Created with the stored item.
func (h *ItemHandler) CreateItem(c echo.Context) error {
	name, err := getDisplayName(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var draft model.ItemDraft
	if err := c.Bind(&draft); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	it, err := h.Engine.Create(c.Request().Context(), draft, name)
	if err != nil {
		if errors.Is(err, engine.ErrValidationFailed) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create item"})
	}
	return c.JSON(http.StatusCreated, it)
}
