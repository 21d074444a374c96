package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices and totals travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is a catalogue entry. Price is stored in the base currency
// and converted for display or payment at request time.
type Product struct {
	ID          uint64          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"imageUrl"`
	ImageURL2   string          `json:"imageUrl2"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Search   string
	Category string
	Page     int
	Limit    int
}
