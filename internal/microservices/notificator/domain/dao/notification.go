package dao

import "time"

// Kind is the order event a notification was sent for.
type Kind string

const (
	KindReady                Kind = "ready"
	KindShipped              Kind = "shipped"
	KindDelivered            Kind = "delivered"
	KindDeliveryFailed       Kind = "delivery_failed"
	KindInventoryUnavailable Kind = "inventory_unavailable"
)

// Notification is one message sent to a customer. There is at most one per
// order and kind.
type Notification struct {
	ID         int64     `json:"id"`
	OrderID    int64     `json:"orderId"`
	CustomerID string    `json:"customerId"`
	Kind       Kind      `json:"kind"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}
