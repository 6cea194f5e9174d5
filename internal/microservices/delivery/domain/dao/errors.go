package dao

import "errors"

var (
	ErrDeliveryNotFound = errors.New("delivery not found")
	ErrDriverNotFound   = errors.New("driver not found")
)
