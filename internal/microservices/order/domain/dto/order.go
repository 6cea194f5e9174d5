package dto

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nikolovlazar/tracing-demos/internal/common/httpx"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/order/domain/dao"
)

// Prices are stored as NUMERIC(10,2) and quantities as INTEGER.
var maxPrice = decimal.New(1, 8)

const maxQuantity = math.MaxInt32

type CreateOrderRequest struct {
	CustomerID      string           `json:"customerId"`
	DeliveryAddress string           `json:"deliveryAddress"`
	Items           []OrderItemInput `json:"items"`
}

type OrderItemInput struct {
	ItemID   string          `json:"itemId"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Validate reports every failing field. An empty delivery address is a
// pickup order.
func (r CreateOrderRequest) Validate() error {
	var verr httpx.ValidationError
	if strings.TrimSpace(r.CustomerID) == "" {
		verr.Add("customerId", "is required")
	}
	if len(r.Items) == 0 {
		verr.Add("items", "at least one item is required")
	}
	for i, it := range r.Items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(it.ItemID) == "" {
			verr.Add(field+".itemId", "is required")
		}
		if strings.TrimSpace(it.Name) == "" {
			verr.Add(field+".name", "is required")
		}
		switch {
		case it.Quantity <= 0:
			verr.Add(field+".quantity", "must be positive")
		case it.Quantity > maxQuantity:
			verr.Add(field+".quantity", "is too large")
		}
		switch {
		case !it.Price.IsPositive():
			verr.Add(field+".price", "must be positive")
		case !it.Price.Equal(it.Price.Truncate(2)):
			verr.Add(field+".price", "must have at most 2 decimal places")
		case it.Price.GreaterThanOrEqual(maxPrice):
			verr.Add(field+".price", "is too large")
		}
	}
	return verr.Err()
}

// ConvertItems maps input items to domain OrderItem slice
func ConvertItems(inputs []OrderItemInput) []dao.OrderItem {
	items := make([]dao.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, dao.OrderItem{
			ItemID:   in.ItemID,
			Name:     in.Name,
			Quantity: in.Quantity,
			Price:    in.Price,
		})
	}
	return items
}

type ListOrdersResponse struct {
	Orders []dao.Order `json:"orders"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

type TimelineResponse struct {
	OrderID int64              `json:"orderId"`
	Events  []dao.StatusChange `json:"events"`
}
