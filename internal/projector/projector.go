// Package projector derives view-level collections from an item
// snapshot. Every function is a pure transform: it never mutates its
// input and never touches the store, so the same snapshot always yields
// the same result. State is re-derived from each snapshot in full;
// nothing here is patched incrementally.
package projector

import (
	"sort"

	"github.com/daruji/giveaway/internal/model"
)

// AllItems returns the snapshot ordered by creation time descending
// (most recent first). The input is not trusted to be sorted; ties on
// created_at break on id descending so the order is deterministic.
func AllItems(set []model.Item) []model.Item {
	out := make([]model.Item, len(set))
	copy(out, set)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// MyItems returns the items owned by identity, in AllItems order.
func MyItems(set []model.Item, identity string) []model.Item {
	out := make([]model.Item, 0)
	for _, it := range AllItems(set) {
		if it.Owner == identity {
			out = append(out, it)
		}
	}
	return out
}

// AvailableCount returns the number of items open for reservation.
func AvailableCount(set []model.Item) int {
	n := 0
	for _, it := range set {
		if it.Available() {
			n++
		}
	}
	return n
}

// ReservedCount returns the number of items currently reserved.
// AvailableCount + ReservedCount always equals len(set).
func ReservedCount(set []model.Item) int {
	return len(set) - AvailableCount(set)
}
