package dto

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nikolovlazar/tracing-demos/internal/common/httpx"
	"github.com/nikolovlazar/tracing-demos/internal/microservices/inventory/domain/dao"
)

var maxPrice = decimal.New(1, 8)

func checkQuantity(verr *httpx.ValidationError, q int) {
	switch {
	case q < 0:
		verr.Add("quantity", "must not be negative")
	case q > math.MaxInt32:
		verr.Add("quantity", "is too large")
	}
}

// checkPrice mirrors the NUMERIC(10,2) column.
func checkPrice(verr *httpx.ValidationError, p decimal.Decimal) {
	switch {
	case p.IsNegative():
		verr.Add("price", "must not be negative")
	case !p.Equal(p.Truncate(2)):
		verr.Add("price", "must have at most 2 decimal places")
	case p.GreaterThanOrEqual(maxPrice):
		verr.Add("price", "is too large")
	}
}

type CreateItemRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

func (r CreateItemRequest) Validate() error {
	var verr httpx.ValidationError
	if strings.TrimSpace(r.Name) == "" {
		verr.Add("name", "is required")
	}
	checkQuantity(&verr, r.Quantity)
	checkPrice(&verr, r.Price)
	return verr.Err()
}

func (r CreateItemRequest) ToItem() dao.Item {
	return dao.Item{
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		Quantity:    r.Quantity,
		Price:       r.Price,
	}
}

type UpdateItemRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Quantity    *int             `json:"quantity"`
	Price       *decimal.Decimal `json:"price"`
}

func (r UpdateItemRequest) Validate() error {
	var verr httpx.ValidationError
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		verr.Add("name", "must not be empty")
	}
	if r.Quantity != nil {
		checkQuantity(&verr, *r.Quantity)
	}
	if r.Price != nil {
		checkPrice(&verr, *r.Price)
	}
	return verr.Err()
}

func (r UpdateItemRequest) ToPatch() dao.ItemPatch {
	return dao.ItemPatch{Name: r.Name, Description: r.Description, Quantity: r.Quantity, Price: r.Price}
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (r UpdateQuantityRequest) Validate() error {
	var verr httpx.ValidationError
	switch {
	case r.Quantity == nil:
		verr.Add("quantity", "is required")
	default:
		checkQuantity(&verr, *r.Quantity)
	}
	return verr.Err()
}

type ListItemsResponse struct {
	Items  []dao.Item `json:"items"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}
