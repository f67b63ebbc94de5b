package collection

import (
	"context"

	"storefront/internal/model"
	"storefront/internal/storage/local"
	"storefront/internal/storage/remote"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CartPolicy counts quantities and never persists an empty cart outside of
// Clear.
var CartPolicy = Policy{
	Name:             "cart",
	Slot:             local.SlotCart,
	RemoteCollection: remote.CollectionCarts,
	Counted:          true,
	SkipEmptyWrites:  true,
}

// Cart is a session's shopping cart.
type Cart struct {
	sync *Synchronizer
}

// NewCart creates an empty cart bound to the anonymous identity.
func NewCart(localStore local.Store, remoteStore remote.Store, logger zerolog.Logger) *Cart {
	return &Cart{sync: NewSynchronizer(CartPolicy, localStore, remoteStore, logger)}
}

// OnIdentityChanged reloads the cart for identity. A read failure is
// returned and leaves the cart unloaded until EnsureLoaded or the next
// mutation succeeds in reading it.
func (c *Cart) OnIdentityChanged(ctx context.Context, identity model.Identity) error {
	return c.sync.OnIdentityChanged(ctx, identity)
}

// EnsureLoaded retries a failed load of the cart.
func (c *Cart) EnsureLoaded(ctx context.Context) error {
	return c.sync.EnsureLoaded(ctx)
}

// Loaded reports whether the stored cart has been read.
func (c *Cart) Loaded() bool {
	return c.sync.Loaded()
}

// Identity returns the identity the cart is bound to.
func (c *Cart) Identity() model.Identity {
	return c.sync.Identity()
}

// AddItem adds one unit of item.
func (c *Cart) AddItem(ctx context.Context, item model.Item) error {
	return c.sync.Add(ctx, item)
}

// RemoveItem removes the item with id.
func (c *Cart) RemoveItem(ctx context.Context, id int) error {
	return c.sync.Remove(ctx, id)
}

// UpdateQuantity sets the quantity of id. A quantity of zero or less
// removes the item.
func (c *Cart) UpdateQuantity(ctx context.Context, id, quantity int) error {
	return c.sync.setQuantity(ctx, id, quantity)
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) error {
	return c.sync.Clear(ctx)
}

// Persist retries the last cart write if it failed.
func (c *Cart) Persist(ctx context.Context) {
	c.sync.Persist(ctx)
}

// Items returns the cart items in insertion order.
func (c *Cart) Items() []model.Item {
	return c.sync.Items()
}

// TotalItems returns the sum of item quantities.
func (c *Cart) TotalItems() int {
	return c.sync.TotalCount()
}

// Subtotal returns the sum of effective price times quantity.
func (c *Cart) Subtotal() decimal.Decimal {
	return c.sync.TotalValue()
}
