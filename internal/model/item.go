package model

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Stored collections and orders carry prices as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Item is an element of a cart or wishlist.
type Item struct {
	ID        int              `json:"id"`
	Name      string           `json:"name"`
	Price     decimal.Decimal  `json:"price"`
	SalePrice *decimal.Decimal `json:"salePrice"`
	Image     string           `json:"image"`
	// Quantity is only meaningful for cart items; wishlist items leave it zero.
	Quantity int `json:"quantity,omitempty"`
}

// EffectivePrice returns the sale price when one is set, otherwise the list price.
func (i Item) EffectivePrice() decimal.Decimal {
	if i.SalePrice != nil {
		return *i.SalePrice
	}
	return i.Price
}

// LineTotal returns the effective price multiplied by the item quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.EffectivePrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Validate checks the fields a client must supply when adding an item.
func (i Item) Validate() error {
	if i.ID <= 0 {
		return ErrInvalidItem
	}
	if i.Price.IsNegative() {
		return ErrInvalidItem
	}
	if i.SalePrice != nil && i.SalePrice.IsNegative() {
		return ErrInvalidItem
	}
	return nil
}
