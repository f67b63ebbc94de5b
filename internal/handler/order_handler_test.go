package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/model"
	"storefront/internal/order"
	"storefront/internal/storage/local"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderResolver is a mock implementation of OrderResolver.
type MockOrderResolver struct {
	mock.Mock
}

func (m *MockOrderResolver) Resolve(ctx context.Context, orderID string, identity model.Identity, offline local.Store) (*order.Resolution, error) {
	args := m.Called(ctx, orderID, identity, offline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Resolution), args.Error(1)
}

func TestOrderHandler_Confirmation(t *testing.T) {
	createdAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	resolution := &order.Resolution{
		Order:       &model.Order{ID: "ord-1", Status: "confirmed", Items: []model.LineItem{}, CreatedAt: createdAt},
		Offline:     false,
		DisplayDate: "May 1, 2024",
	}

	tests := []struct {
		name             string
		target           string
		identity         model.Identity
		mockReturn       *order.Resolution
		mockError        error
		expectResolver   bool
		expectedStatus   int
		expectedLocation string
	}{
		{
			name:           "Success",
			target:         "/api/orders/confirmation?id=ord-1",
			identity:       model.Identity{UserID: "user-1"},
			mockReturn:     resolution,
			expectResolver: true,
			expectedStatus: http.StatusOK,
		},
		{
			name:             "Missing order id redirects",
			target:           "/api/orders/confirmation",
			expectResolver:   false,
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/shop",
		},
		{
			name:           "Resolver internal error",
			target:         "/api/orders/confirmation?id=ord-1",
			mockError:      errors.New("boom"),
			expectResolver: true,
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions, _ := newTestSessions()
			resolver := new(MockOrderResolver)
			handler := NewOrderHandler(sessions, resolver, "/shop", zerolog.Nop())

			if tt.expectResolver {
				resolver.On("Resolve", mock.Anything, "ord-1", tt.identity, mock.Anything).Return(tt.mockReturn, tt.mockError)
			}

			w := serve("GET /api/orders/confirmation", handler.Confirmation, httptest.NewRequest(http.MethodGet, tt.target, nil), tt.identity)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedLocation != "" {
				assert.Equal(t, tt.expectedLocation, w.Header().Get("Location"))
			}
			if tt.expectResolver {
				resolver.AssertExpectations(t)
			} else {
				resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}

			if tt.expectedStatus == http.StatusOK {
				var body map[string]json.RawMessage
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.JSONEq(t, `false`, string(body["offline"]))
				assert.JSONEq(t, `"May 1, 2024"`, string(body["displayDate"]))
				assert.Contains(t, string(body["order"]), `"ord-1"`)
			}
		})
	}
}

func TestOrderHandler_ConfirmationUsesDeviceOfflineOrders(t *testing.T) {
	sessions, remoteStore := newTestSessions()
	s, err := sessions.Get(context.Background(), testDeviceID, model.Anonymous())
	require.NoError(t, err)
	require.NoError(t, s.Store().Set(context.Background(), local.SlotOfflineOrders,
		[]byte(`[{"id": "OFFLINE-77", "status": "pending", "createdAt": "2024-06-02T10:00:00Z"}]`)))

	resolver := order.NewResolver(remoteStore, zerolog.Nop())
	handler := NewOrderHandler(sessions, resolver, "/", zerolog.Nop())

	w := serve("GET /api/orders/confirmation", handler.Confirmation,
		httptest.NewRequest(http.MethodGet, "/api/orders/confirmation?id=OFFLINE-77", nil), model.Anonymous())

	require.Equal(t, http.StatusOK, w.Code)
	var resp order.Resolution
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Offline)
	assert.Equal(t, "OFFLINE-77", resp.Order.ID)
	assert.Equal(t, "June 2, 2024", resp.DisplayDate)
}

func TestOrderHandler_ConfirmationPlaceholder(t *testing.T) {
	sessions, remoteStore := newTestSessions()
	resolver := order.NewResolver(remoteStore, zerolog.Nop())
	handler := NewOrderHandler(sessions, resolver, "/", zerolog.Nop())

	w := serve("GET /api/orders/confirmation", handler.Confirmation,
		httptest.NewRequest(http.MethodGet, "/api/orders/confirmation?id=ord-unknown", nil),
		model.Identity{UserID: "user-1", Email: "buyer@example.com"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp order.Resolution
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Offline)
	assert.Equal(t, "buyer@example.com", resp.Order.Customer.Email)
	assert.Equal(t, model.OrderStatusPending, resp.Order.Status)
	assert.True(t, resp.Order.Amounts.Total.IsZero())
}
