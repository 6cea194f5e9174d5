package dao

import (
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ItemPatch carries the fields of a partial update; nil means unchanged.
type ItemPatch struct {
	Name        *string
	Description *string
	Quantity    *int
	Price       *decimal.Decimal
}

// ReservationLine is one requested or reserved line. ItemID is kept as the
// order service sent it.
type ReservationLine struct {
	ItemID   string
	Quantity int
}

// Availability is the outcome of checking one line against stock.
type Availability struct {
	ItemID            string
	Available         bool
	CurrentStock      *int
	RequestedQuantity int
	Reason            string
}

// Reservation is the result of a reservation attempt.
type Reservation struct {
	// Reserved is true when stock is held for every line.
	Reserved bool
	// Replayed is true when the order already held a reservation and nothing
	// was decremented this time.
	Replayed bool
	Lines    []ReservationLine
	Report   []Availability
}
