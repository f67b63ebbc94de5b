package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/identity"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/session"
	"storefront/internal/storage/local"
	"storefront/internal/storage/remote"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const testDeviceID = "device-1"

// MockSessionProvider is a mock implementation of SessionProvider.
type MockSessionProvider struct {
	mock.Mock
}

func (m *MockSessionProvider) Get(ctx context.Context, deviceID string, identity model.Identity) (*session.Session, error) {
	args := m.Called(ctx, deviceID, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

// MockRemoteStore is a mock implementation of remote.Store.
type MockRemoteStore struct {
	mock.Mock
}

func (m *MockRemoteStore) Get(ctx context.Context, collection, key string) (remote.Document, error) {
	args := m.Called(ctx, collection, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(remote.Document), args.Error(1)
}

func (m *MockRemoteStore) Set(ctx context.Context, collection, key string, fields remote.Document) error {
	args := m.Called(ctx, collection, key, fields)
	return args.Error(0)
}

func newTestSessions() (*session.Manager, *remote.MemoryStore) {
	remoteStore := remote.NewMemoryStore()
	return session.NewManager(local.NewMemoryProvider(), remoteStore, zerolog.Nop()), remoteStore
}

// serve routes req through a mux holding a single pattern, with the device
// middleware applied and the request bound to id.
func serve(pattern string, h http.HandlerFunc, req *http.Request, id model.Identity) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.Handle(pattern, middleware.Device(zerolog.Nop())(h))

	req.Header.Set(middleware.DeviceIDHeader, testDeviceID)
	req = req.WithContext(identity.WithIdentity(req.Context(), id))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	writeJSON(w, http.StatusCreated, map[string]bool{"inWishlist": true})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"inWishlist": true}`, w.Body.String())
}

func TestWriteJSON_UnencodableValueKeepsStatus(t *testing.T) {
	w := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		writeJSON(w, http.StatusOK, map[string]any{"bad": make(chan int)})
	})
	assert.Equal(t, http.StatusOK, w.Code)
}
