package dao

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Delivery struct {
	ID                    int64          `json:"id"`
	OrderID               int64          `json:"orderId"`
	CustomerID            string         `json:"customerId"`
	Address               string         `json:"address"`
	Status                Status         `json:"status"`
	DriverID              string         `json:"driverId"`
	DriverName            string         `json:"driverName"`
	EstimatedDeliveryTime time.Time      `json:"estimatedDeliveryTime"`
	ActualDeliveryTime    *time.Time     `json:"actualDeliveryTime,omitempty"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
	Items                 []DeliveryItem `json:"items"`
}

type DeliveryItem struct {
	ID         int64  `json:"id"`
	DeliveryID int64  `json:"deliveryId"`
	ItemID     string `json:"itemId"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
}

type Driver struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}
