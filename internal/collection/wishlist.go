package collection

import (
	"context"

	"storefront/internal/model"
	"storefront/internal/storage/local"
	"storefront/internal/storage/remote"

	"github.com/rs/zerolog"
)

// WishlistPolicy treats the wishlist as a set and persists every change,
// including the empty state.
var WishlistPolicy = Policy{
	Name:             "wishlist",
	Slot:             local.SlotWishlist,
	RemoteCollection: remote.CollectionWishlists,
}

// Wishlist is a session's set of saved items.
type Wishlist struct {
	sync *Synchronizer
}

// NewWishlist creates an empty wishlist bound to the anonymous identity.
func NewWishlist(localStore local.Store, remoteStore remote.Store, logger zerolog.Logger) *Wishlist {
	return &Wishlist{sync: NewSynchronizer(WishlistPolicy, localStore, remoteStore, logger)}
}

// OnIdentityChanged reloads the wishlist for identity. A read failure is
// returned and leaves the wishlist unloaded until EnsureLoaded or the next
// mutation succeeds in reading it.
func (w *Wishlist) OnIdentityChanged(ctx context.Context, identity model.Identity) error {
	return w.sync.OnIdentityChanged(ctx, identity)
}

// EnsureLoaded retries a failed load of the wishlist.
func (w *Wishlist) EnsureLoaded(ctx context.Context) error {
	return w.sync.EnsureLoaded(ctx)
}

// Loaded reports whether the stored wishlist has been read.
func (w *Wishlist) Loaded() bool {
	return w.sync.Loaded()
}

// Identity returns the identity the wishlist is bound to.
func (w *Wishlist) Identity() model.Identity {
	return w.sync.Identity()
}

// AddItem adds item unless an item with the same id is present.
func (w *Wishlist) AddItem(ctx context.Context, item model.Item) error {
	return w.sync.Add(ctx, item)
}

// RemoveItem removes the item with id.
func (w *Wishlist) RemoveItem(ctx context.Context, id int) error {
	return w.sync.Remove(ctx, id)
}

// IsInWishlist reports whether id is in the wishlist.
func (w *Wishlist) IsInWishlist(id int) bool {
	return w.sync.Contains(id)
}

// Clear empties the wishlist.
func (w *Wishlist) Clear(ctx context.Context) error {
	return w.sync.Clear(ctx)
}

// Persist retries the last wishlist write if it failed.
func (w *Wishlist) Persist(ctx context.Context) {
	w.sync.Persist(ctx)
}

// Items returns the wishlist items in insertion order.
func (w *Wishlist) Items() []model.Item {
	return w.sync.Items()
}

// TotalItems returns the number of items.
func (w *Wishlist) TotalItems() int {
	return w.sync.TotalCount()
}
