// Package collection keeps a session's cart and wishlist in memory and
// synchronises them with the local or remote store selected by the
// session identity.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/model"
	"storefront/internal/storage/local"
	"storefront/internal/storage/remote"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrNotLoaded is returned by mutations when the stored collection of the
// current identity could not be read. Nothing is written in that state so
// the stored copy survives until a load succeeds.
var ErrNotLoaded = errors.New("collection not loaded")

// Policy describes how a collection merges items and where it is stored.
type Policy struct {
	// Name identifies the collection in logs.
	Name string

	// Slot is the local store slot used while anonymous.
	Slot string

	// RemoteCollection is the remote collection used while authenticated.
	RemoteCollection string

	// Counted collections keep a quantity per item and increment it when an
	// existing item is added again. Uncounted collections behave as sets.
	Counted bool

	// SkipEmptyWrites suppresses persisting an empty collection, so an empty
	// client state never overwrites a richer stored copy. Clear is exempt.
	SkipEmptyWrites bool
}

// snapshot is a copy of the collection taken after a mutation.
type snapshot struct {
	items    []model.Item
	identity model.Identity
	revision uint64
}

// Synchronizer owns one in-memory collection and its persistence.
//
// Identity changes bump a generation counter; a load that completes after a
// newer identity change is discarded. Mutations wait for the load of the
// current generation before applying and retry it once if it failed, and
// writes are applied in revision order so an older snapshot never replaces
// a newer one.
type Synchronizer struct {
	policy Policy
	local  local.Store
	remote remote.Store
	logger zerolog.Logger

	mu         sync.Mutex
	items      []model.Item
	identity   model.Identity
	generation uint64
	ready      chan struct{}
	loaded     bool
	revision   uint64

	writeMu    sync.Mutex
	writtenRev uint64
	unsaved    bool
}

// NewSynchronizer creates a synchronizer for the anonymous identity with an
// empty collection. The stored state is read by OnIdentityChanged, or by the
// first mutation.
func NewSynchronizer(policy Policy, localStore local.Store, remoteStore remote.Store, logger zerolog.Logger) *Synchronizer {
	ready := make(chan struct{})
	close(ready)

	return &Synchronizer{
		policy: policy,
		local:  localStore,
		remote: remoteStore,
		logger: logger.With().Str("component", policy.Name+"-synchronizer").Logger(),
		ready:  ready,
	}
}

// Identity returns the identity the collection is currently bound to.
func (s *Synchronizer) Identity() model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// OnIdentityChanged discards the in-memory collection and reloads it from
// the backend matching identity: the remote store when authenticated, the
// local slot otherwise. The anonymous collection is not carried into an
// authenticated session. A failed read is returned and leaves the
// collection unloaded.
func (s *Synchronizer) OnIdentityChanged(ctx context.Context, identity model.Identity) error {
	s.mu.Lock()
	s.generation++
	generation := s.generation
	s.identity = identity
	s.items = nil
	s.loaded = false
	ready := make(chan struct{})
	s.ready = ready
	s.mu.Unlock()

	s.writeMu.Lock()
	s.unsaved = false
	s.writeMu.Unlock()

	s.logger.Debug().
		Str("identity", identity.String()).
		Uint64("generation", generation).
		Msg("identity changed, loading collection")

	return s.loadGeneration(ctx, generation, identity, ready)
}

// loadGeneration loads the collection of identity and installs it when
// generation is still current. ready is closed on return.
func (s *Synchronizer) loadGeneration(ctx context.Context, generation uint64, identity model.Identity, ready chan struct{}) error {
	items, err := s.load(ctx, identity)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(ready)

	if generation != s.generation {
		s.logger.Debug().
			Str("identity", identity.String()).
			Uint64("generation", generation).
			Uint64("current_generation", s.generation).
			Msg("discarding stale collection load")
		return nil
	}
	if err != nil {
		return err
	}

	s.items = items
	s.loaded = true
	s.logger.Debug().
		Str("identity", identity.String()).
		Int("item_count", len(items)).
		Msg("collection loaded")
	return nil
}

// Loaded reports whether the collection of the current identity has been
// read from its store.
func (s *Synchronizer) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// EnsureLoaded waits for a pending load and retries a failed one.
func (s *Synchronizer) EnsureLoaded(ctx context.Context) error {
	if err := s.lockLoaded(ctx); err != nil {
		return err
	}
	s.mu.Unlock()
	return nil
}

// load reads the stored collection for identity. A missing record, an
// invalid remote document or malformed local data yield an empty
// collection; read failures are returned.
func (s *Synchronizer) load(ctx context.Context, identity model.Identity) ([]model.Item, error) {
	if identity.Authenticated() {
		doc, err := s.remote.Get(ctx, s.policy.RemoteCollection, identity.UserID)
		if err != nil {
			s.logger.Error().Err(err).Str("identity", identity.String()).Msg("failed to load collection from remote store")
			return nil, fmt.Errorf("failed to load remote collection %s: %w", s.policy.RemoteCollection, err)
		}
		if doc == nil {
			return nil, nil
		}
		items, err := remote.DecodeItems(doc)
		if err != nil {
			s.logger.Error().Err(err).Str("identity", identity.String()).Msg("invalid collection document in remote store")
			return nil, nil
		}
		return s.normalize(items), nil
	}

	var items []model.Item
	if _, err := local.GetJSON(ctx, s.local, s.policy.Slot, &items); err != nil {
		if errors.Is(err, local.ErrMalformed) {
			s.logger.Warn().Err(err).Str("slot", s.policy.Slot).Msg("malformed collection in local store, starting empty")
			return nil, nil
		}
		s.logger.Error().Err(err).Str("slot", s.policy.Slot).Msg("failed to load collection from local store")
		return nil, fmt.Errorf("failed to load local slot %s: %w", s.policy.Slot, err)
	}
	return s.normalize(items), nil
}

// normalize enforces one entry per id and the quantity rules of the policy.
func (s *Synchronizer) normalize(items []model.Item) []model.Item {
	seen := make(map[int]struct{}, len(items))
	out := make([]model.Item, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}

		if s.policy.Counted {
			if item.Quantity < 1 {
				item.Quantity = 1
			}
		} else {
			item.Quantity = 0
		}
		out = append(out, item)
	}
	return out
}

// lockReady waits until the load for the current generation has finished,
// successfully or not, and returns with s.mu held.
func (s *Synchronizer) lockReady(ctx context.Context) error {
	for {
		s.mu.Lock()
		ready := s.ready
		s.mu.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			return ctx.Err()
		}

		s.mu.Lock()
		if s.ready == ready {
			return nil
		}
		s.mu.Unlock()
	}
}

// lockLoaded is lockReady for a successfully loaded collection. A failed
// load is retried once; if the collection is still not loaded ErrNotLoaded
// is returned with s.mu released.
func (s *Synchronizer) lockLoaded(ctx context.Context) error {
	var loadErr error
	for attempt := 0; ; attempt++ {
		if err := s.lockReady(ctx); err != nil {
			return err
		}
		if s.loaded {
			return nil
		}
		if attempt > 0 {
			s.mu.Unlock()
			if loadErr != nil {
				return fmt.Errorf("%w: %w", ErrNotLoaded, loadErr)
			}
			return ErrNotLoaded
		}

		generation, identity := s.generation, s.identity
		ready := make(chan struct{})
		s.ready = ready
		s.mu.Unlock()

		s.logger.Debug().Str("identity", identity.String()).Msg("loading collection before mutation")
		loadErr = s.loadGeneration(ctx, generation, identity, ready)
	}
}

// mutate applies fn to the loaded collection and persists the result when
// fn reports a change.
func (s *Synchronizer) mutate(ctx context.Context, fn func(items []model.Item) ([]model.Item, bool)) error {
	if err := s.lockLoaded(ctx); err != nil {
		return err
	}

	items, changed := fn(s.items)
	if !changed {
		s.mu.Unlock()
		return nil
	}
	s.items = items
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
	return nil
}

func (s *Synchronizer) snapshotLocked() snapshot {
	s.revision++
	return snapshot{
		items:    append([]model.Item(nil), s.items...),
		identity: s.identity,
		revision: s.revision,
	}
}

// Add inserts item or applies the merge policy when its id is present.
func (s *Synchronizer) Add(ctx context.Context, item model.Item) error {
	return s.mutate(ctx, func(items []model.Item) ([]model.Item, bool) {
		for i := range items {
			if items[i].ID != item.ID {
				continue
			}
			if !s.policy.Counted {
				return items, false
			}
			updated := append([]model.Item(nil), items...)
			updated[i].Quantity++
			return updated, true
		}

		if s.policy.Counted {
			item.Quantity = 1
		} else {
			item.Quantity = 0
		}
		return append(append([]model.Item(nil), items...), item), true
	})
}

// Remove deletes the item with id. Removing an absent id is a no-op.
func (s *Synchronizer) Remove(ctx context.Context, id int) error {
	return s.mutate(ctx, func(items []model.Item) ([]model.Item, bool) {
		return removeItem(items, id)
	})
}

func removeItem(items []model.Item, id int) ([]model.Item, bool) {
	out := make([]model.Item, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out, len(out) != len(items)
}

// setQuantity sets the quantity of id, removing it when quantity <= 0.
func (s *Synchronizer) setQuantity(ctx context.Context, id, quantity int) error {
	return s.mutate(ctx, func(items []model.Item) ([]model.Item, bool) {
		if quantity <= 0 {
			return removeItem(items, id)
		}
		for i := range items {
			if items[i].ID == id {
				if items[i].Quantity == quantity {
					return items, false
				}
				updated := append([]model.Item(nil), items...)
				updated[i].Quantity = quantity
				return updated, true
			}
		}
		return items, false
	})
}

// Clear empties the collection and immediately persists the empty state:
// an empty items document remotely, or removal of the local slot.
func (s *Synchronizer) Clear(ctx context.Context) error {
	if err := s.lockReady(ctx); err != nil {
		return err
	}
	s.items = nil
	s.loaded = true
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if snap.revision <= s.writtenRev {
		return nil
	}
	s.writtenRev = snap.revision

	var err error
	if snap.identity.Authenticated() {
		doc, _ := remote.ItemsDocument(nil)
		err = s.remote.Set(ctx, s.policy.RemoteCollection, snap.identity.UserID, doc)
	} else {
		err = s.local.Remove(ctx, s.policy.Slot)
	}
	s.unsaved = err != nil
	if err != nil {
		s.logger.Error().Err(err).Str("identity", snap.identity.String()).Msg("failed to clear stored collection")
	}
	return nil
}

// Persist writes the current collection to the active backend when the last
// write failed. It waits for the load of the current identity and writes
// nothing while that load keeps failing.
func (s *Synchronizer) Persist(ctx context.Context) {
	s.writeMu.Lock()
	unsaved := s.unsaved
	s.writeMu.Unlock()
	if !unsaved {
		return
	}

	if err := s.lockLoaded(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("skipping retry of failed write")
		return
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
}

// Unsaved reports whether the last write of the collection failed.
func (s *Synchronizer) Unsaved() bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.unsaved
}

// persist writes snap unless a newer revision has already been written.
// Failures are logged; the in-memory collection is never rolled back.
func (s *Synchronizer) persist(ctx context.Context, snap snapshot) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if snap.revision <= s.writtenRev {
		s.logger.Debug().Uint64("revision", snap.revision).Msg("skipping superseded write")
		return
	}
	s.writtenRev = snap.revision

	if s.policy.SkipEmptyWrites && len(snap.items) == 0 {
		s.logger.Debug().Str("identity", snap.identity.String()).Msg("skipping write of empty collection")
		s.unsaved = false
		return
	}

	err := s.write(ctx, snap)
	s.unsaved = err != nil
	if err != nil {
		s.logger.Error().Err(err).Str("identity", snap.identity.String()).Msg("failed to save collection")
	}
}

func (s *Synchronizer) write(ctx context.Context, snap snapshot) error {
	if snap.identity.Authenticated() {
		doc, err := remote.ItemsDocument(snap.items)
		if err != nil {
			return err
		}
		if err := s.remote.Set(ctx, s.policy.RemoteCollection, snap.identity.UserID, doc); err != nil {
			return fmt.Errorf("failed to save to remote collection %s: %w", s.policy.RemoteCollection, err)
		}
		return nil
	}

	items := snap.items
	if items == nil {
		items = []model.Item{}
	}
	if err := local.SetJSON(ctx, s.local, s.policy.Slot, items); err != nil {
		return fmt.Errorf("failed to save to local slot %s: %w", s.policy.Slot, err)
	}
	return nil
}

// Items returns a copy of the collection in insertion order.
func (s *Synchronizer) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.Item, len(s.items))
	copy(items, s.items)
	return items
}

// Contains reports whether an item with id is in the collection.
func (s *Synchronizer) Contains(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.items {
		if item.ID == id {
			return true
		}
	}
	return false
}

// TotalCount returns the sum of quantities for counted collections and the
// number of entries otherwise.
func (s *Synchronizer) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.policy.Counted {
		return len(s.items)
	}
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

// TotalValue returns the sum of effective price times quantity.
func (s *Synchronizer) TotalValue() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.LineTotal())
	}
	return total
}
