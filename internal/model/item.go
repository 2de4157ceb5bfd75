package model

import "time"

// Item is a single give-away listing. It is the only persisted entity:
// the reservation lives on the item itself rather than in a separate
// table, so an item is always in exactly one of two states, available
// (Reserved false, ReservedBy/ReservedAt empty) or reserved.
//
// Fields:
//  ID          – items.id, assigned by the store, unique and never reused.
//  Title       – items.title, required.
//  Description – items.description, optional free text.
//  Image       – items.image, opaque encoded blob (data URL or similar).
//  Owner       – items.owner, display name captured at creation, immutable.
//  CreatedAt   – items.created_at, assigned by the database, immutable.
//  Reserved    – items.reserved.
//  ReservedBy  – items.reserved_by, meaningful only while Reserved is true.
//  ReservedAt  – items.reserved_at, assigned by the database on reserve.
type Item struct {
	ID          uint64     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Image       string     `json:"image"`
	Owner       string     `json:"owner"`
	CreatedAt   time.Time  `json:"created_at"`
	Reserved    bool       `json:"reserved"`
	ReservedBy  string     `json:"reserved_by,omitempty"`
	ReservedAt  *time.Time `json:"reserved_at,omitempty"`
}

// Available reports whether the item can currently be reserved.
func (i Item) Available() bool { return !i.Reserved }

// ItemDraft carries the user-supplied fields for a new listing. The
// owner, id and timestamps are filled in by the engine and the store.
type ItemDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}
