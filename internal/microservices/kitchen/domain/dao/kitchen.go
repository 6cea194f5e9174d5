package dao

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
)

type KitchenOrder struct {
	ID        int64       `json:"id"`
	OrderID   int64       `json:"orderId"`
	Status    Status      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Items     []OrderItem `json:"items"`
}

type OrderItem struct {
	ID             int64  `json:"id"`
	KitchenOrderID int64  `json:"kitchenOrderId"`
	ItemID         string `json:"itemId"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	Status         Status `json:"status"`
}

// AllCompleted reports whether every item is completed. An order without
// items never completes.
func (ko KitchenOrder) AllCompleted() bool {
	if len(ko.Items) == 0 {
		return false
	}
	for _, it := range ko.Items {
		if it.Status != StatusCompleted {
			return false
		}
	}
	return true
}
