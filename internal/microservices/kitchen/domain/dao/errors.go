package dao

import "errors"

var (
	ErrKitchenOrderNotFound = errors.New("kitchen order not found")
	ErrItemNotFound         = errors.New("kitchen order item not found")
	ErrKitchenOrderClosed   = errors.New("kitchen order already completed")
)
