package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses and payment states used by the confirmation flow.
const (
	OrderStatusPending      = "pending"
	PaymentStatusProcessing = "processing"
)

// Order is a placed order as stored by the checkout process.
type Order struct {
	ID              string          `json:"id"`
	Customer        Customer        `json:"customer"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Items           []LineItem      `json:"items"`
	Amounts         Amounts         `json:"amounts"`
	Payment         Payment         `json:"payment"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Customer holds the contact details captured at checkout.
type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// ShippingAddress is the delivery address of an order.
type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

// UnmarshalJSON accepts both "postalCode" and the legacy "pincode" key.
func (a *ShippingAddress) UnmarshalJSON(data []byte) error {
	var raw struct {
		Address    string `json:"address"`
		City       string `json:"city"`
		State      string `json:"state"`
		PostalCode string `json:"postalCode"`
		Pincode    string `json:"pincode"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.Address = raw.Address
	a.City = raw.City
	a.State = raw.State
	a.PostalCode = raw.PostalCode
	if a.PostalCode == "" {
		a.PostalCode = raw.Pincode
	}
	return nil
}

// LineItem is a purchased item with its price and quantity at purchase time.
type LineItem struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image,omitempty"`
}

// Amounts is the monetary breakdown of an order.
type Amounts struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Payment describes how an order is paid and where the payment stands.
type Payment struct {
	Method string `json:"method"`
	Status string `json:"status"`
}

// UnmarshalJSON decodes an order whose createdAt may be an ISO string, a
// remote timestamp object or epoch milliseconds. Unrecognised values leave
// CreatedAt zero.
func (o *Order) UnmarshalJSON(data []byte) error {
	type orderAlias Order
	var raw struct {
		orderAlias
		CreatedAt json.RawMessage `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*o = Order(raw.orderAlias)
	if ts, ok := ParseTimestamp(raw.CreatedAt); ok {
		o.CreatedAt = ts
	}
	return nil
}

// Validate checks the minimum shape of a decoded order.
func (o *Order) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("order id is required")
	}
	for i, item := range o.Items {
		if item.Quantity < 0 {
			return fmt.Errorf("item %d: quantity must not be negative", i)
		}
	}
	return nil
}
