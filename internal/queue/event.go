// Package queue defines message payloads exchanged over the message broker.
package queue

// ItemReservedEvent is published when a reservation is successfully
// recorded. It carries enough information for downstream consumers to
// log or notify without querying the primary database.
type ItemReservedEvent struct {
	ItemID     uint64 `json:"item_id"`
	Title      string `json:"title"`
	Owner      string `json:"owner"`
	ReservedBy string `json:"reserved_by"`
	ReservedAt string `json:"reserved_at"`
}
