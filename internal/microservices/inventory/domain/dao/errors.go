package dao

import "errors"

var (
	ErrItemNotFound = errors.New("inventory item not found")
	ErrItemReserved = errors.New("inventory item has reservations")
	// ErrStockChanged means a locked row no longer satisfied the decrement,
	// which only happens if the row lock was bypassed.
	ErrStockChanged = errors.New("stock changed during reservation")
)
