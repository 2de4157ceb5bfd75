// Package engine owns the decision logic for item state transitions:
// who may move an item between available and reserved, and which store
// command that decision turns into. The engine checks preconditions and
// shapes commands; it does not detect conflicts itself. Concurrency
// safety comes from the store's guarded single-row updates, so a
// precondition read here is only a fast path and the store re-checks
// the state on write.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/daruji/giveaway/internal/model"
	"github.com/daruji/giveaway/internal/repository"
)

// Sentinel errors forming the engine's failure taxonomy. Handlers
// translate these into HTTP status codes. Store failures are wrapped in
// ErrStoreUnavailable and propagated, never retried here.
var (
	ErrValidationFailed  = errors.New("validation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// ErrItemNotFound aliases the repository sentinel so callers only need
// the engine's taxonomy.
var ErrItemNotFound = repository.ErrItemNotFound

// Store is the subset of the item store the engine drives. It is
// satisfied by *repository.ItemRepo.
type Store interface {
	Create(ctx context.Context, draft model.ItemDraft, owner string) (*model.Item, error)
	GetByID(ctx context.Context, id uint64) (*model.Item, error)
	Reserve(ctx context.Context, id uint64, reservedBy string) (*model.Item, error)
	ClearReservation(ctx context.Context, id uint64) (*model.Item, error)
	Delete(ctx context.Context, id uint64) error
}

// Notifier is told after every successful mutation so subscribers can
// be pushed a fresh snapshot. A nil notifier disables notifications.
type Notifier interface {
	ItemsChanged(ctx context.Context)
}

// Engine enforces the reservation state machine on top of a Store.
type Engine struct {
	store    Store
	notifier Notifier
}

// New constructs an Engine. The store must be non-nil; the notifier may
// be nil when no subscribers exist (tests, batch tools).
func New(store Store, notifier Notifier) *Engine {
	if store == nil {
		panic("nil store passed to engine.New")
	}
	return &Engine{store: store, notifier: notifier}
}

// Create validates a draft and inserts it as a new available listing.
// Validation happens before any store call: a draft without a title or
// image, or a missing owner identity, never reaches the store.
func (e *Engine) Create(ctx context.Context, draft model.ItemDraft, owner string) (*model.Item, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, fmt.Errorf("%w: owner identity is required", ErrValidationFailed)
	}
	if strings.TrimSpace(draft.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidationFailed)
	}
	if draft.Image == "" {
		return nil, fmt.Errorf("%w: image is required", ErrValidationFailed)
	}
	it, err := e.store.Create(ctx, draft, owner)
	if err != nil {
		return nil, storeErr("create item", err)
	}
	e.changed(ctx)
	return it, nil
}

// Reserve claims an available item for the given reserver. Owners may
// not reserve their own listings. The store write carries an atomic
// guard, so a reserve that loses the race to another reserver fails
// with ErrInvalidTransition instead of overwriting the earlier claim.
func (e *Engine) Reserve(ctx context.Context, id uint64, reserver string) (*model.Item, error) {
	if strings.TrimSpace(reserver) == "" {
		return nil, fmt.Errorf("%w: reserver identity is required", ErrValidationFailed)
	}
	it, err := e.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.Owner == reserver {
		return nil, fmt.Errorf("%w: owners cannot reserve their own items", ErrUnauthorized)
	}
	if it.Reserved {
		return nil, fmt.Errorf("%w: item is already reserved", ErrInvalidTransition)
	}
	// The store returns the committed row from the write itself, so the
	// response cannot misreport a reservation that already landed.
	reserved, err := e.store.Reserve(ctx, id, reserver)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrItemNotFound):
			return nil, ErrItemNotFound
		case errors.Is(err, repository.ErrAlreadyReserved):
			return nil, fmt.Errorf("%w: item is already reserved", ErrInvalidTransition)
		default:
			return nil, storeErr("reserve item", err)
		}
	}
	e.changed(ctx)
	return reserved, nil
}

// CancelReservation returns a reserved item to the available state.
// Only the owner may cancel; there is deliberately no reserver-cancels
// path.
func (e *Engine) CancelReservation(ctx context.Context, id uint64, caller string) (*model.Item, error) {
	it, err := e.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(caller) == "" || it.Owner != caller {
		return nil, fmt.Errorf("%w: only the owner may cancel a reservation", ErrUnauthorized)
	}
	if !it.Reserved {
		return nil, fmt.Errorf("%w: item is not reserved", ErrInvalidTransition)
	}
	released, err := e.store.ClearReservation(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrItemNotFound):
			return nil, ErrItemNotFound
		case errors.Is(err, repository.ErrNotReserved):
			return nil, fmt.Errorf("%w: item is not reserved", ErrInvalidTransition)
		default:
			return nil, storeErr("cancel reservation", err)
		}
	}
	e.changed(ctx)
	return released, nil
}

// Delete removes a listing in either state. Only the owner may delete.
// Deletion pre-empts any in-flight reservation without notifying the
// reserver; their next command fails with ErrItemNotFound.
func (e *Engine) Delete(ctx context.Context, id uint64, caller string) error {
	it, err := e.lookup(ctx, id)
	if err != nil {
		return err
	}
	if strings.TrimSpace(caller) == "" || it.Owner != caller {
		return fmt.Errorf("%w: only the owner may delete a listing", ErrUnauthorized)
	}
	if err := e.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return ErrItemNotFound
		}
		return storeErr("delete item", err)
	}
	e.changed(ctx)
	return nil
}

func (e *Engine) lookup(ctx context.Context, id uint64) (*model.Item, error) {
	it, err := e.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, storeErr("load item", err)
	}
	return it, nil
}

func (e *Engine) changed(ctx context.Context) {
	if e.notifier != nil {
		e.notifier.ItemsChanged(ctx)
	}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
