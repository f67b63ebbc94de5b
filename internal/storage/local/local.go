// Package local stores device-scoped state: the anonymous cart and wishlist
// and the orders a checkout could not send to the remote store.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Slot names used by the storefront.
const (
	SlotCart          = "cart"
	SlotWishlist      = "wishlist"
	SlotOfflineOrders = "offlineOrders"
)

// ErrMalformed marks slot content that is not valid JSON for the requested type.
var ErrMalformed = errors.New("malformed slot content")

// Store defines device-scoped persistent storage keyed by slot.
type Store interface {
	// Get returns the blob stored in slot, or nil when the slot is empty.
	Get(ctx context.Context, slot string) ([]byte, error)

	// Set replaces the content of slot.
	Set(ctx context.Context, slot string, data []byte) error

	// Remove deletes slot. Removing an empty slot is not an error.
	Remove(ctx context.Context, slot string) error
}

// Provider hands out the Store belonging to a device.
type Provider interface {
	// ForDevice returns the store scoped to deviceID.
	ForDevice(deviceID string) (Store, error)
}

// GetJSON decodes the JSON blob in slot into v. It reports false when the
// slot is empty; malformed content is returned as an error.
func GetJSON(ctx context.Context, store Store, slot string, v any) (bool, error) {
	data, err := store.Get(ctx, slot)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w in slot %s: %v", ErrMalformed, slot, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it in slot.
func SetJSON(ctx context.Context, store Store, slot string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode slot %s: %w", slot, err)
	}
	return store.Set(ctx, slot, data)
}
