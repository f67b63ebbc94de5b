// Package remote is the durable, per-user document tier. Documents are
// addressed by collection and key and written with field-level merge.
package remote

import (
	"context"
	"errors"
)

// Collections used by the storefront.
const (
	CollectionCarts     = "carts"
	CollectionWishlists = "wishlists"
	CollectionOrders    = "orders"
)

// ErrInvalidDocument is returned when a stored document does not match the
// expected schema.
var ErrInvalidDocument = errors.New("invalid document")

// Store defines the operations of the remote document store.
type Store interface {
	// Get returns the document at collection/key, or nil when it does not exist.
	Get(ctx context.Context, collection, key string) (Document, error)

	// Set merges fields into the document at collection/key, creating it when
	// necessary. Fields not named in fields are left untouched.
	Set(ctx context.Context, collection, key string, fields Document) error
}
