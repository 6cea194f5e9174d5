// Package events defines the saga's message contract: one Go type per routing
// key, the JSON envelope they travel in, and the exchange that carries them.
package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys.
const (
	OrderCreated              = "order.created"
	OrderReadyForKitchen      = "order.ready_for_kitchen"
	OrderReady                = "order.ready"
	OrderReadyForDelivery     = "order.ready_for_delivery"
	OrderShipped              = "order.shipped"
	OrderDelivered            = "order.delivered"
	OrderDeliveryFailed       = "order.delivery_failed"
	OrderInventoryUnavailable = "order.inventory_unavailable"

	InventoryReserved    = "inventory.reserved"
	InventoryUnavailable = "inventory.unavailable"

	KitchenOrderReceived  = "kitchen.order_received"
	KitchenOrderReady     = "kitchen.order_ready"
	KitchenOrderCompleted = "kitchen.order_completed"

	DeliveryScheduled = "delivery.scheduled"
	DeliveryCompleted = "delivery.completed"
	DeliveryFailed    = "delivery.failed"
)

// Availability reasons reported by inventory.unavailable.
const (
	ReasonItemNotFound      = "Item not found in inventory"
	ReasonInsufficientStock = "Insufficient stock"
)

// Delivery failure reasons.
const (
	ReasonInvalidAddress = "Invalid delivery address"
	ReasonNoDrivers      = "No available drivers"
)

// Event is implemented by every payload type.
type Event interface {
	RoutingKey() string
	// OrderRef is the order the event belongs to; used as correlation id.
	OrderRef() int64
}

// Item is an order line as it travels between services. Price is only set
// by the order service.
type Item struct {
	ItemID   string           `json:"itemId"`
	Name     string           `json:"name"`
	Quantity int              `json:"quantity"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

// ReservedItem is one line of an inventory reservation.
type ReservedItem struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// Availability is the per-item report of a reservation attempt.
type Availability struct {
	ItemID            string `json:"itemId"`
	Available         bool   `json:"available"`
	CurrentStock      *int   `json:"currentStock,omitempty"`
	RequestedQuantity int    `json:"requestedQuantity"`
	Reason            string `json:"reason,omitempty"`
}

// ===== Order events =====

type OrderCreatedEvent struct {
	ID              int64     `json:"id"`
	CustomerID      string    `json:"customerId"`
	DeliveryAddress string    `json:"deliveryAddress"`
	Items           []Item    `json:"items"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

type OrderReadyForKitchenEvent struct {
	OrderID int64  `json:"orderId"`
	Items   []Item `json:"items"`
}

type OrderReadyEvent struct {
	OrderID    int64  `json:"orderId"`
	CustomerID string `json:"customerId"`
	Items      []Item `json:"items"`
}

type OrderReadyForDeliveryEvent struct {
	OrderID         int64  `json:"orderId"`
	CustomerID      string `json:"customerId"`
	DeliveryAddress string `json:"deliveryAddress"`
	Items           []Item `json:"items"`
}

type OrderShippedEvent struct {
	OrderID               int64     `json:"orderId"`
	CustomerID            string    `json:"customerId"`
	DeliveryID            int64     `json:"deliveryId"`
	DriverID              string    `json:"driverId"`
	DriverName            string    `json:"driverName"`
	EstimatedDeliveryTime time.Time `json:"estimatedDeliveryTime"`
}

type OrderDeliveredEvent struct {
	OrderID            int64     `json:"orderId"`
	CustomerID         string    `json:"customerId"`
	DeliveryID         int64     `json:"deliveryId"`
	ActualDeliveryTime time.Time `json:"actualDeliveryTime"`
}

type OrderDeliveryFailedEvent struct {
	OrderID    int64  `json:"orderId"`
	CustomerID string `json:"customerId"`
	Reason     string `json:"reason"`
}

type OrderInventoryUnavailableEvent struct {
	OrderID    int64          `json:"orderId"`
	CustomerID string         `json:"customerId"`
	Items      []Availability `json:"items"`
}

// ===== Inventory events =====

type InventoryReservedEvent struct {
	OrderID int64          `json:"orderId"`
	Items   []ReservedItem `json:"items"`
}

type InventoryUnavailableEvent struct {
	OrderID int64          `json:"orderId"`
	Items   []Availability `json:"items"`
}

// ===== Kitchen events =====

type KitchenOrderReceivedEvent struct {
	KitchenOrderID int64  `json:"kitchenOrderId"`
	OrderID        int64  `json:"orderId"`
	Items          []Item `json:"items"`
}

type KitchenOrderReadyEvent struct {
	KitchenOrderID int64  `json:"kitchenOrderId"`
	OrderID        int64  `json:"orderId"`
	Items          []Item `json:"items"`
}

type KitchenOrderCompletedEvent struct {
	KitchenOrderID int64 `json:"kitchenOrderId"`
	OrderID        int64 `json:"orderId"`
}

// ===== Delivery events =====

type DeliveryScheduledEvent struct {
	DeliveryID            int64     `json:"deliveryId"`
	OrderID               int64     `json:"orderId"`
	CustomerID            string    `json:"customerId"`
	DriverID              string    `json:"driverId"`
	DriverName            string    `json:"driverName"`
	EstimatedDeliveryTime time.Time `json:"estimatedDeliveryTime"`
	Address               string    `json:"address"`
	Items                 []Item    `json:"items"`
}

type DeliveryCompletedEvent struct {
	DeliveryID         int64     `json:"deliveryId"`
	OrderID            int64     `json:"orderId"`
	CustomerID         string    `json:"customerId"`
	DriverID           string    `json:"driverId"`
	DriverName         string    `json:"driverName"`
	ActualDeliveryTime time.Time `json:"actualDeliveryTime"`
}

type DeliveryFailedEvent struct {
	OrderID    int64  `json:"orderId"`
	CustomerID string `json:"customerId"`
	Reason     string `json:"reason"`
}

func (OrderCreatedEvent) RoutingKey() string              { return OrderCreated }
func (OrderReadyForKitchenEvent) RoutingKey() string      { return OrderReadyForKitchen }
func (OrderReadyEvent) RoutingKey() string                { return OrderReady }
func (OrderReadyForDeliveryEvent) RoutingKey() string     { return OrderReadyForDelivery }
func (OrderShippedEvent) RoutingKey() string              { return OrderShipped }
func (OrderDeliveredEvent) RoutingKey() string            { return OrderDelivered }
func (OrderDeliveryFailedEvent) RoutingKey() string       { return OrderDeliveryFailed }
func (OrderInventoryUnavailableEvent) RoutingKey() string { return OrderInventoryUnavailable }
func (InventoryReservedEvent) RoutingKey() string         { return InventoryReserved }
func (InventoryUnavailableEvent) RoutingKey() string      { return InventoryUnavailable }
func (KitchenOrderReceivedEvent) RoutingKey() string      { return KitchenOrderReceived }
func (KitchenOrderReadyEvent) RoutingKey() string         { return KitchenOrderReady }
func (KitchenOrderCompletedEvent) RoutingKey() string     { return KitchenOrderCompleted }
func (DeliveryScheduledEvent) RoutingKey() string         { return DeliveryScheduled }
func (DeliveryCompletedEvent) RoutingKey() string         { return DeliveryCompleted }
func (DeliveryFailedEvent) RoutingKey() string            { return DeliveryFailed }

func (e OrderCreatedEvent) OrderRef() int64              { return e.ID }
func (e OrderReadyForKitchenEvent) OrderRef() int64      { return e.OrderID }
func (e OrderReadyEvent) OrderRef() int64                { return e.OrderID }
func (e OrderReadyForDeliveryEvent) OrderRef() int64     { return e.OrderID }
func (e OrderShippedEvent) OrderRef() int64              { return e.OrderID }
func (e OrderDeliveredEvent) OrderRef() int64            { return e.OrderID }
func (e OrderDeliveryFailedEvent) OrderRef() int64       { return e.OrderID }
func (e OrderInventoryUnavailableEvent) OrderRef() int64 { return e.OrderID }
func (e InventoryReservedEvent) OrderRef() int64         { return e.OrderID }
func (e InventoryUnavailableEvent) OrderRef() int64      { return e.OrderID }
func (e KitchenOrderReceivedEvent) OrderRef() int64      { return e.OrderID }
func (e KitchenOrderReadyEvent) OrderRef() int64         { return e.OrderID }
func (e KitchenOrderCompletedEvent) OrderRef() int64     { return e.OrderID }
func (e DeliveryScheduledEvent) OrderRef() int64         { return e.OrderID }
func (e DeliveryCompletedEvent) OrderRef() int64         { return e.OrderID }
func (e DeliveryFailedEvent) OrderRef() int64            { return e.OrderID }
