// Package session keeps one cart and wishlist per device and keeps them bound
// to the identity presented with each request.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/internal/collection"
	"storefront/internal/model"
	"storefront/internal/storage/local"
	"storefront/internal/storage/remote"

	"github.com/rs/zerolog"
)

// Session is the state of one device.
type Session struct {
	DeviceID string
	Cart     *collection.Cart
	Wishlist *collection.Wishlist

	local local.Store

	mu       sync.Mutex
	identity model.Identity
	bound    bool
	lastSeen time.Time
}

// Store returns the device-scoped local store.
func (s *Session) Store() local.Store {
	return s.local
}

// Identity returns the identity the session is bound to.
func (s *Session) Identity() model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// bind ties the session to identity. The first use or an identity change
// reloads both collections; otherwise a collection whose last load failed
// is read again. It reports whether the identity changed, along with any
// load failure.
func (s *Session) bind(ctx context.Context, identity model.Identity, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = now
	if s.bound && s.identity == identity {
		var retries []func() error
		if !s.Cart.Loaded() {
			retries = append(retries, func() error { return s.Cart.EnsureLoaded(ctx) })
		}
		if !s.Wishlist.Loaded() {
			retries = append(retries, func() error { return s.Wishlist.EnsureLoaded(ctx) })
		}
		return false, parallel(retries...)
	}

	s.identity = identity
	s.bound = true
	return true, parallel(
		func() error { return s.Cart.OnIdentityChanged(ctx, identity) },
		func() error { return s.Wishlist.OnIdentityChanged(ctx, identity) },
	)
}

// parallel runs fns concurrently and joins their errors.
func parallel(fns ...func() error) error {
	errs := make([]error, len(fns))

	var wg sync.WaitGroup
	for i, fn := range fns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = fn()
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) persist(ctx context.Context) {
	s.Cart.Persist(ctx)
	s.Wishlist.Persist(ctx)
}

// Manager owns the sessions of all devices.
type Manager struct {
	provider local.Provider
	remote   remote.Store
	now      func() time.Time
	logger   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a new session manager.
func NewManager(provider local.Provider, remoteStore remote.Store, logger zerolog.Logger) *Manager {
	return &Manager{
		provider: provider,
		remote:   remoteStore,
		now:      time.Now,
		logger:   logger.With().Str("component", "session").Logger(),
		sessions: make(map[string]*Session),
	}
}

// Get returns the session of deviceID bound to identity. A new session is
// created on first use; an identity change reloads both collections before
// Get returns. A collection that cannot be read is left unloaded and read
// again by the next Get; its mutations fail until then.
func (m *Manager) Get(ctx context.Context, deviceID string, identity model.Identity) (*Session, error) {
	s, err := m.lookup(deviceID)
	if err != nil {
		return nil, err
	}

	changed, err := s.bind(ctx, identity, m.now())
	if err != nil {
		m.logger.Warn().
			Err(err).
			Str("device_id", deviceID).
			Str("identity", identity.String()).
			Msg("session collections not loaded")
	}
	if changed {
		m.logger.Debug().
			Str("device_id", deviceID).
			Str("identity", identity.String()).
			Msg("session identity bound")
	}
	return s, nil
}

func (m *Manager) lookup(deviceID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[deviceID]; ok {
		return s, nil
	}

	store, err := m.provider.ForDevice(deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}

	s := &Session{
		DeviceID: deviceID,
		Cart:     collection.NewCart(store, m.remote, m.logger),
		Wishlist: collection.NewWishlist(store, m.remote, m.logger),
		local:    store,
		lastSeen: m.now(),
	}
	m.sessions[deviceID] = s

	m.logger.Info().Str("device_id", deviceID).Int("session_count", len(m.sessions)).Msg("session created")
	return s, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than maxIdle after retrying their
// failed writes. It returns the number of sessions dropped.
func (m *Manager) Sweep(ctx context.Context, maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.persist(ctx)
	}

	if len(idle) > 0 {
		m.logger.Info().Int("evicted", len(idle)).Msg("idle sessions evicted")
	}
	return len(idle)
}

// Run sweeps idle sessions every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx, maxIdle)
		}
	}
}

// Close retries failed writes of every session.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.persist(ctx)
	}
	m.logger.Info().Int("session_count", len(sessions)).Msg("sessions flushed")
}
