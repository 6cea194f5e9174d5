package dao

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending              Status = "pending"
	StatusAwaitingKitchen      Status = "awaiting_kitchen"
	StatusReady                Status = "ready"
	StatusShipped              Status = "shipped"
	StatusDelivered            Status = "delivered"
	StatusDeliveryFailed       Status = "delivery_failed"
	StatusInventoryUnavailable Status = "inventory_unavailable"
)

// successors are the statuses one event can move an order to.
var successors = map[Status][]Status{
	StatusPending:         {StatusAwaitingKitchen, StatusInventoryUnavailable},
	StatusAwaitingKitchen: {StatusReady},
	StatusReady:           {StatusShipped, StatusDeliveryFailed},
	StatusShipped:         {StatusDelivered, StatusDeliveryFailed},
}

// CanTransition reports whether an order in from may be set to to: the same
// status again (a redelivered event) or any status reachable forward.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	seen := map[Status]bool{from: true}
	queue := []Status{from}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, next := range successors[s] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

type Order struct {
	ID                    int64       `json:"id"`
	CustomerID            string      `json:"customerId"`
	DeliveryAddress       string      `json:"deliveryAddress"`
	Status                Status      `json:"status"`
	DeliveryID            *int64      `json:"deliveryId,omitempty"`
	DriverID              *string     `json:"driverId,omitempty"`
	DriverName            *string     `json:"driverName,omitempty"`
	EstimatedDeliveryTime *time.Time  `json:"estimatedDeliveryTime,omitempty"`
	ActualDeliveryTime    *time.Time  `json:"actualDeliveryTime,omitempty"`
	CreatedAt             time.Time   `json:"createdAt"`
	UpdatedAt             time.Time   `json:"updatedAt"`
	Items                 []OrderItem `json:"items"`
}

type OrderItem struct {
	ID       int64           `json:"id"`
	OrderID  int64           `json:"orderId"`
	ItemID   string          `json:"itemId"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// StatusUpdate is one transition plus the delivery fields it carries; nil
// fields are left unchanged.
type StatusUpdate struct {
	Status                Status
	ChangedBy             string
	Notes                 string
	DeliveryID            *int64
	DriverID              *string
	DriverName            *string
	EstimatedDeliveryTime *time.Time
	ActualDeliveryTime    *time.Time
}

// StatusChange is one row of an order's timeline.
type StatusChange struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"orderId"`
	Status    Status    `json:"status"`
	ChangedBy string    `json:"changedBy"`
	ChangedAt time.Time `json:"changedAt"`
	Notes     string    `json:"notes,omitempty"`
}
