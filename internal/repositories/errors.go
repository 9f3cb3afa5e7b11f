package repositories

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("record already exists")
	// ErrInsufficientInventory is returned when a stock decrement would go negative.
	ErrInsufficientInventory = errors.New("insufficient inventory")
)
