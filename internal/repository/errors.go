// Package repository defines sentinel errors that are reused across the
// data access layer. These values allow higher layers such as the
// reservation engine and handlers to distinguish between different
// failure scenarios without inspecting SQL errors directly.
package repository

import "errors"

// ErrItemNotFound is returned when no item exists with the requested id,
// including the case where a pending command races with a delete.
var ErrItemNotFound = errors.New("item not found")

// ErrAlreadyReserved is returned when a guarded reserve touches no rows
// because another reserver reached the item first.
var ErrAlreadyReserved = errors.New("item already reserved")

// ErrNotReserved is returned when a release touches no rows because the
// item holds no reservation to clear.
var ErrNotReserved = errors.New("item not reserved")
