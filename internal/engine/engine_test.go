package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daruji/giveaway/internal/model"
	"github.com/daruji/giveaway/internal/repository"
)

var errDown = errors.New("connection refused")

// fakeStore implements Store in memory with the same guarded-update
// semantics as the SQL repository: reserve and clear only succeed from
// the matching state, and every failure uses the repository sentinels.
type fakeStore struct {
	items      map[uint64]*model.Item
	nextID     uint64
	down       bool  // every call fails with errDown
	reserveErr error // forced result for the next Reserve call
	creates    int   // number of Create calls that reached the store

	// dropAfterReserve deletes the row right after a successful reserve
	// commits, simulating an owner delete racing the response.
	dropAfterReserve bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[uint64]*model.Item), nextID: 1}
}

func (s *fakeStore) Create(_ context.Context, draft model.ItemDraft, owner string) (*model.Item, error) {
	s.creates++
	if s.down {
		return nil, errDown
	}
	it := &model.Item{
		ID:          s.nextID,
		Title:       draft.Title,
		Description: draft.Description,
		Image:       draft.Image,
		Owner:       owner,
		CreatedAt:   time.Now().UTC(),
	}
	s.items[s.nextID] = it
	s.nextID++
	cp := *it
	return &cp, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uint64) (*model.Item, error) {
	if s.down {
		return nil, errDown
	}
	it, ok := s.items[id]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (s *fakeStore) Reserve(_ context.Context, id uint64, reservedBy string) (*model.Item, error) {
	if s.down {
		return nil, errDown
	}
	if s.reserveErr != nil {
		err := s.reserveErr
		s.reserveErr = nil
		return nil, err
	}
	it, ok := s.items[id]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	if it.Reserved {
		return nil, repository.ErrAlreadyReserved
	}
	now := time.Now().UTC()
	it.Reserved = true
	it.ReservedBy = reservedBy
	it.ReservedAt = &now
	cp := *it
	if s.dropAfterReserve {
		delete(s.items, id)
	}
	return &cp, nil
}

func (s *fakeStore) ClearReservation(_ context.Context, id uint64) (*model.Item, error) {
	if s.down {
		return nil, errDown
	}
	it, ok := s.items[id]
	if !ok {
		return nil, repository.ErrItemNotFound
	}
	if !it.Reserved {
		return nil, repository.ErrNotReserved
	}
	it.Reserved = false
	it.ReservedBy = ""
	it.ReservedAt = nil
	cp := *it
	return &cp, nil
}

func (s *fakeStore) Delete(_ context.Context, id uint64) error {
	if s.down {
		return errDown
	}
	if _, ok := s.items[id]; !ok {
		return repository.ErrItemNotFound
	}
	delete(s.items, id)
	return nil
}

type countingNotifier struct{ changes int }

func (n *countingNotifier) ItemsChanged(context.Context) { n.changes++ }

// assertStateConsistent checks that the reservation flag and its two
// companion fields always agree.
func assertStateConsistent(t *testing.T, it *model.Item) {
	t.Helper()
	if it.Reserved {
		assert.NotEmpty(t, it.ReservedBy, "reserved item must record the reserver")
		assert.NotNil(t, it.ReservedAt, "reserved item must record the timestamp")
	} else {
		assert.Empty(t, it.ReservedBy, "available item must not record a reserver")
		assert.Nil(t, it.ReservedAt, "available item must not record a timestamp")
	}
}

func draft() model.ItemDraft {
	return model.ItemDraft{Title: "Old couch", Description: "well used", Image: "data:image/jpeg;base64,xxxx"}
}

func TestCreateValidatesBeforeStoreCall(t *testing.T) {
	store := newFakeStore()
	eng := New(store, nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		draft model.ItemDraft
		owner string
	}{
		{"empty title", model.ItemDraft{Image: "img"}, "Alice"},
		{"blank title", model.ItemDraft{Title: "   ", Image: "img"}, "Alice"},
		{"missing image", model.ItemDraft{Title: "Lamp"}, "Alice"},
		{"missing owner", draft(), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := eng.Create(ctx, tc.draft, tc.owner)
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}
	assert.Zero(t, store.creates, "invalid drafts must never reach the store")
}

func TestCreateStartsAvailable(t *testing.T) {
	store := newFakeStore()
	notifier := &countingNotifier{}
	eng := New(store, notifier)

	it, err := eng.Create(context.Background(), draft(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", it.Owner)
	assert.False(t, it.Reserved)
	assert.NotZero(t, it.ID)
	assertStateConsistent(t, it)
	assert.Equal(t, 1, notifier.changes)
}

func TestReserve(t *testing.T) {
	store := newFakeStore()
	notifier := &countingNotifier{}
	eng := New(store, notifier)
	ctx := context.Background()

	it, err := eng.Create(ctx, draft(), "Alice")
	require.NoError(t, err)

	got, err := eng.Reserve(ctx, it.ID, "Bob")
	require.NoError(t, err)
	assert.True(t, got.Reserved)
	assert.Equal(t, "Bob", got.ReservedBy)
	assertStateConsistent(t, got)
	assert.Equal(t, 2, notifier.changes)
}

func TestReserveReservedItemFailsForAnyCaller(t *testing.T) {
	store := newFakeStore()
	eng := New(store, nil)
	ctx := context.Background()

	it, err := eng.Create(ctx, draft(), "Alice")
	require.NoError(t, err)
	_, err = eng.Reserve(ctx, it.ID, "Bob")
	require.NoError(t, err)

	for _, caller := range []string{"Carol", "Bob"} {
		_, err := eng.Reserve(ctx, it.ID, caller)
		assert.ErrorIs(t, err, ErrInvalidTransition, "caller %s", caller)
	}
	// The winning reservation is untouched.
	got, err := store.GetByID(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.ReservedBy)
}

func TestOwnerCannotReserveOwnItem(t *testing.T) {
	store := newFakeStore()
	eng := New(store, nil)
	ctx := context.Background()

	it, err := eng.Create(ctx, draft(), "Alice")
	require.NoError(t, err)

	_, err = eng.Reserve(ctx, it.ID, "Alice")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestReserveRequiresIdentity(t *testing.T) {
	store := newFakeStore()
	eng := New(store, nil)
	ctx := context.Background()

	it, err := eng.Create(ctx, draft(), "Alice")
	require.NoError(t, err)

	_, err = eng.Reserve(ctx, it.ID, "   ")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestReserveLostRace(t *testing.T) {
	store := newFakeStore()
	eng := New(store, nil)
	ctx := context.Background()

	it, err := eng.Create(ctx, draft(), "Alice")
	require.NoError(t, err)

	// The engine's read saw the item available, but another reserver
	// reaches the row first: the guarded write reports the conflict.
	store.reserveErr = repository.ErrAlreadyReserved
	_, err = eng.Reserve(ctx, it.ID, "Bob")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReserveSurvivesImmediateDelete(t *testing.T) {
	store := newFakeStore()
	eng := New(store, nil)
	ctx := context.Background()

	it, err := eng.Create(ctx, draft(), "Alice")
	require.NoError(t, err)

	// The owner deletes the listing the instant Bob's reservation
	// commits. Bob's write still happened, so his response reports the
	// reserved item rather than a spurious not-found.
	store.dropAfterReserve = true
	got, err := eng.Reserve(ctx, it.ID, "Bob")
	require.NoError(t, err)
	assert.True(t, got.Reserved)
	assert.Equal(t, "Bob", got.ReservedBy)
	assertStateConsistent(t, got)
}

func TestCancelReservation(t *testing.T) {
	store := newFakeStore()
	eng := New(store, nil)
	ctx := context.Background()

	it, err := eng.Create(ctx, draft(), "Alice")
	require.NoError(t, err)
	_, err = eng.Reserve(ctx, it.ID, "Bob")
	require.NoError(t, err)

	// Anyone but the owner is refused, including the reserver.
	for _, caller := range []string{"Bob", "Carol", ""} {
		_, err := eng.CancelReservation(ctx, it.ID, caller)
		assert.ErrorIs(t, err, ErrUnauthorized, "caller %q", caller)
	}

	got, err := eng.CancelReservation(ctx, it.ID, "Alice")
	require.NoError(t, err)
	assert.False(t, got.Reserved)
	assertStateConsistent(t, got)
}

func TestCancelAvailableItem(t *testing.T) {
	store := newFakeStore()
	eng := New(store, nil)
	ctx := context.Background()

	it, err := eng.Create(ctx, draft(), "Alice")
	require.NoError(t, err)

	_, err = eng.CancelReservation(ctx, it.ID, "Alice")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDeleteOnlyByOwner(t *testing.T) {
	store := newFakeStore()
	eng := New(store, nil)
	ctx := context.Background()

	it, err := eng.Create(ctx, draft(), "Alice")
	require.NoError(t, err)

	err = eng.Delete(ctx, it.ID, "Bob")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = store.GetByID(ctx, it.ID)
	assert.NoError(t, err, "item must survive an unauthorized delete")

	require.NoError(t, eng.Delete(ctx, it.ID, "Alice"))
	_, err = store.GetByID(ctx, it.ID)
	assert.ErrorIs(t, err, repository.ErrItemNotFound)
}

func TestDeletePreemptsReservation(t *testing.T) {
	store := newFakeStore()
	eng := New(store, nil)
	ctx := context.Background()

	it, err := eng.Create(ctx, draft(), "Alice")
	require.NoError(t, err)
	_, err = eng.Reserve(ctx, it.ID, "Bob")
	require.NoError(t, err)

	// The owner deletes while Bob holds the reservation.
	require.NoError(t, eng.Delete(ctx, it.ID, "Alice"))

	// Any further transition Bob issues resolves as not found.
	_, err = eng.Reserve(ctx, it.ID, "Bob")
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = eng.CancelReservation(ctx, it.ID, "Bob")
	assert.ErrorIs(t, err, ErrItemNotFound)
	err = eng.Delete(ctx, it.ID, "Bob")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestReserveThenCancelRoundTrip(t *testing.T) {
	store := newFakeStore()
	eng := New(store, nil)
	ctx := context.Background()

	it, err := eng.Create(ctx, draft(), "Alice")
	require.NoError(t, err)

	reserved, err := eng.Reserve(ctx, it.ID, "Bob")
	require.NoError(t, err)
	assert.True(t, reserved.Reserved)
	assert.Equal(t, "Bob", reserved.ReservedBy)

	released, err := eng.CancelReservation(ctx, it.ID, "Alice")
	require.NoError(t, err)
	assert.False(t, released.Reserved)
	assert.Empty(t, released.ReservedBy)
	assert.Nil(t, released.ReservedAt)
}

func TestStoreFailuresPropagate(t *testing.T) {
	store := newFakeStore()
	eng := New(store, nil)
	ctx := context.Background()

	it, err := eng.Create(ctx, draft(), "Alice")
	require.NoError(t, err)

	store.down = true
	_, err = eng.Create(ctx, draft(), "Alice")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = eng.Reserve(ctx, it.ID, "Bob")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, eng.Delete(ctx, it.ID, "Alice"), ErrStoreUnavailable)

	// The cause stays reachable for logging.
	_, err = eng.Reserve(ctx, it.ID, "Bob")
	assert.ErrorIs(t, err, errDown)
}
