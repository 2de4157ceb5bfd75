// Package stream delivers full item snapshots to subscribers whenever
// the store changes, mirroring a document store's live query: an
// initial snapshot immediately on subscribe, then one complete
// replacement per change notification. Subscribers never receive
// partial updates.
package stream

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/daruji/giveaway/internal/model"
)

// changeChannel is the Redis pub/sub channel carrying change
// notifications between instances. The payload is irrelevant; every
// message means "re-read the snapshot".
const changeChannel = "items.changed"

// SnapshotSource supplies the current full item set. It is satisfied by
// *repository.ItemRepo.
type SnapshotSource interface {
	Snapshot(ctx context.Context) ([]model.Item, error)
}

// Hub fans item snapshots out to subscribers. With Redis available the
// change notifications travel through the shared channel so writes from
// any instance refresh every instance; without it, notifications raised
// on this process still reach local subscribers.
type Hub struct {
	source SnapshotSource
	rdb    *redis.Client // may be nil
	local  chan struct{} // coalesced in-process change signal

	mu   sync.Mutex
	subs map[uint64]chan []model.Item
	next uint64
}

// NewHub constructs a Hub. rdb may be nil, in which case notifications
// stay in-process.
func NewHub(source SnapshotSource, rdb *redis.Client) *Hub {
	if source == nil {
		panic("nil snapshot source passed to stream.NewHub")
	}
	return &Hub{
		source: source,
		rdb:    rdb,
		local:  make(chan struct{}, 1),
		subs:   make(map[uint64]chan []model.Item),
	}
}

// Run listens for change notifications and pushes a fresh snapshot to
// every subscriber. It blocks until ctx is cancelled. The Redis
// subscription reconnects on its own; a failed snapshot read is logged
// and skipped, and the next notification tries again.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.receiveRemote(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.local:
			h.refresh(ctx)
		}
	}
}

// Subscribe registers a new subscriber and delivers the current
// snapshot into the returned channel before returning. The channel
// holds at most one pending snapshot: a slow consumer skips straight to
// the newest state instead of draining a backlog. The returned cancel
// function unregisters the subscriber and closes the channel.
func (h *Hub) Subscribe(ctx context.Context) (<-chan []model.Item, func(), error) {
	snap, err := h.source.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan []model.Item, 1)
	ch <- snap

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel, nil
}

// ItemsChanged signals that the item set changed. With Redis the
// notification goes through the shared channel and comes back via
// receiveRemote; if publishing fails, or Redis is absent, the signal
// stays local so this instance's subscribers still refresh.
func (h *Hub) ItemsChanged(ctx context.Context) {
	if h.rdb != nil {
		err := h.rdb.Publish(ctx, changeChannel, "changed").Err()
		if err == nil {
			return
		}
		log.Printf("stream: publish change notification failed: %v; falling back to local", err)
	}
	h.kick()
}

func (h *Hub) receiveRemote(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, changeChannel)
	defer func() { _ = pubsub.Close() }()
	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-msgs:
			if !ok {
				return
			}
			h.kick()
		}
	}
}

// kick coalesces change signals into the buffered local channel so a
// burst of writes produces a single refresh.
func (h *Hub) kick() {
	select {
	case h.local <- struct{}{}:
	default:
	}
}

func (h *Hub) refresh(ctx context.Context) {
	snap, err := h.source.Snapshot(ctx)
	if err != nil {
		log.Printf("stream: snapshot refresh failed: %v", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		push(sub, snap)
	}
}

// push replaces a subscriber's pending snapshot instead of blocking.
func push(ch chan []model.Item, snap []model.Item) {
	for {
		select {
		case ch <- snap:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
