package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"storefront/internal/model"
	"storefront/internal/storage/local"
	"storefront/internal/storage/remote"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

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

var fixedNow = time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC)

func newTestResolver(store remote.Store, opts ...Option) *Resolver {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewResolver(store, zerolog.Nop(), opts...)
}

func remoteOrderDoc(t *testing.T, raw string) remote.Document {
	t.Helper()
	var doc remote.Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func offlineStore(t *testing.T, raw string) local.Store {
	t.Helper()
	store := local.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), local.SlotOfflineOrders, []byte(raw)))
	return store
}

func TestResolver_MissingOrderID(t *testing.T) {
	remoteStore := new(MockRemoteStore)
	resolver := newTestResolver(remoteStore)

	res, err := resolver.Resolve(context.Background(), "", model.Anonymous(), local.NewMemoryStore())

	assert.Nil(t, res)
	assert.ErrorIs(t, err, model.ErrMissingOrderID)
	remoteStore.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolver_RemoteOrder(t *testing.T) {
	remoteStore := new(MockRemoteStore)
	remoteStore.On("Get", mock.Anything, remote.CollectionOrders, "ord-1").Return(remoteOrderDoc(t, `{
		"customer": {"firstName": "Asha", "lastName": "Rao", "email": "asha@example.com", "phone": "99"},
		"shippingAddress": {"address": "1 Hill Rd", "city": "Pune", "state": "MH", "pincode": "411001"},
		"items": [{"id": 3, "name": "Lamp", "price": 250, "quantity": 2}],
		"amounts": {"subtotal": 500, "shipping": 40, "tax": 25, "total": 565},
		"payment": {"method": "cashfree", "status": "paid"},
		"status": "confirmed",
		"createdAt": {"seconds": 1700000000, "nanoseconds": 0}
	}`), nil)

	resolver := newTestResolver(remoteStore)
	res, err := resolver.Resolve(context.Background(), "ord-1", model.Identity{UserID: "u1"}, local.NewMemoryStore())

	require.NoError(t, err)
	assert.False(t, res.Offline)
	assert.Equal(t, "ord-1", res.Order.ID)
	assert.Equal(t, "Asha", res.Order.Customer.FirstName)
	assert.Equal(t, "411001", res.Order.ShippingAddress.PostalCode)
	require.Len(t, res.Order.Items, 1)
	assert.True(t, decimal.NewFromInt(565).Equal(res.Order.Amounts.Total))
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), res.Order.CreatedAt)
	assert.Equal(t, "November 14, 2023", res.DisplayDate)
	remoteStore.AssertExpectations(t)
}

func TestResolver_OfflinePrefixSkipsRemote(t *testing.T) {
	remoteStore := new(MockRemoteStore)
	store := offlineStore(t, `[
		{"id": "OFFLINE-1", "status": "pending", "createdAt": "2024-01-05T08:00:00Z",
		 "amounts": {"subtotal": 100, "shipping": 0, "tax": 0, "total": 100}}
	]`)

	resolver := newTestResolver(remoteStore)
	res, err := resolver.Resolve(context.Background(), "OFFLINE-1", model.Anonymous(), store)

	require.NoError(t, err)
	assert.True(t, res.Offline)
	assert.Equal(t, "OFFLINE-1", res.Order.ID)
	assert.True(t, decimal.NewFromInt(100).Equal(res.Order.Amounts.Total))
	assert.Equal(t, "January 5, 2024", res.DisplayDate)
	remoteStore.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolver_OfflinePrefixMissingEverywhereIsPlaceholder(t *testing.T) {
	remoteStore := new(MockRemoteStore)
	resolver := newTestResolver(remoteStore)

	res, err := resolver.Resolve(context.Background(), "OFFLINE-XYZ", model.Anonymous(), local.NewMemoryStore())

	require.NoError(t, err)
	assert.True(t, res.Offline)
	assert.Equal(t, "OFFLINE-XYZ", res.Order.ID)
	assert.Equal(t, model.OrderStatusPending, res.Order.Status)
	assert.True(t, res.Order.Amounts.Total.IsZero())
	remoteStore.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolver_CustomOfflinePrefix(t *testing.T) {
	remoteStore := new(MockRemoteStore)
	resolver := newTestResolver(remoteStore, WithOfflinePrefix("LOCAL-"))

	assert.True(t, resolver.IsOffline("LOCAL-1"))
	assert.False(t, resolver.IsOffline("OFFLINE-1"))

	_, err := resolver.Resolve(context.Background(), "LOCAL-1", model.Anonymous(), local.NewMemoryStore())
	require.NoError(t, err)
	remoteStore.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolver_RemoteFallbacks(t *testing.T) {
	tests := []struct {
		name string
		doc  remote.Document
		err  error
	}{
		{name: "Not found", doc: nil, err: nil},
		{name: "Remote error", doc: nil, err: errors.New("unavailable")},
		{name: "Undecodable document", doc: remote.Document{"items": json.RawMessage(`"bad"`)}},
		{name: "Invalid quantity", doc: remote.Document{"items": json.RawMessage(`[{"id":1,"quantity":-1}]`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remoteStore := new(MockRemoteStore)
			if tt.doc == nil {
				remoteStore.On("Get", mock.Anything, remote.CollectionOrders, "ord-9").Return(nil, tt.err)
			} else {
				remoteStore.On("Get", mock.Anything, remote.CollectionOrders, "ord-9").Return(tt.doc, tt.err)
			}
			store := offlineStore(t, `[{"id": "ord-8"}, {"id": "ord-9", "status": "pending"}]`)

			resolver := newTestResolver(remoteStore)
			res, err := resolver.Resolve(context.Background(), "ord-9", model.Anonymous(), store)

			require.NoError(t, err)
			assert.True(t, res.Offline)
			assert.Equal(t, "ord-9", res.Order.ID)
			assert.Equal(t, "pending", res.Order.Status)
			assert.Equal(t, fixedNow, res.Order.CreatedAt, "missing createdAt normalizes to now")
			remoteStore.AssertExpectations(t)
		})
	}
}

func TestResolver_Placeholder(t *testing.T) {
	tests := []struct {
		name          string
		identity      model.Identity
		expectedEmail string
	}{
		{name: "Anonymous", identity: model.Anonymous(), expectedEmail: "customer@example.com"},
		{name: "Authenticated", identity: model.Identity{UserID: "u1", Email: "u1@example.com"}, expectedEmail: "u1@example.com"},
		{name: "Authenticated without email", identity: model.Identity{UserID: "u1"}, expectedEmail: "customer@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remoteStore := new(MockRemoteStore)
			remoteStore.On("Get", mock.Anything, remote.CollectionOrders, "ord-404").Return(nil, nil)

			resolver := newTestResolver(remoteStore)
			res, err := resolver.Resolve(context.Background(), "ord-404", tt.identity, local.NewMemoryStore())

			require.NoError(t, err)
			assert.True(t, res.Offline)

			order := res.Order
			assert.Equal(t, "ord-404", order.ID)
			assert.Equal(t, "Valued", order.Customer.FirstName)
			assert.Equal(t, "Customer", order.Customer.LastName)
			assert.Equal(t, tt.expectedEmail, order.Customer.Email)
			assert.Equal(t, "1234567890", order.Customer.Phone)
			assert.Equal(t, model.ShippingAddress{
				Address:    "123 Main St",
				City:       "Mumbai",
				State:      "Maharashtra",
				PostalCode: "400001",
			}, order.ShippingAddress)
			assert.Empty(t, order.Items)
			assert.NotNil(t, order.Items)
			assert.True(t, order.Amounts.Subtotal.IsZero())
			assert.True(t, order.Amounts.Total.IsZero())
			assert.Equal(t, model.Payment{Method: "cashfree", Status: model.PaymentStatusProcessing}, order.Payment)
			assert.Equal(t, model.OrderStatusPending, order.Status)
			assert.Equal(t, fixedNow, order.CreatedAt)
			assert.Equal(t, "March 9, 2024", res.DisplayDate)
		})
	}
}

func TestResolver_CustomDefaults(t *testing.T) {
	remoteStore := new(MockRemoteStore)
	remoteStore.On("Get", mock.Anything, remote.CollectionOrders, "ord-1").Return(nil, nil)

	defaults := DefaultDefaults()
	defaults.City = "Delhi"
	defaults.PaymentMethod = "cod"

	resolver := newTestResolver(remoteStore, WithDefaults(defaults))
	res, err := resolver.Resolve(context.Background(), "ord-1", model.Anonymous(), nil)

	require.NoError(t, err)
	assert.Equal(t, "Delhi", res.Order.ShippingAddress.City)
	assert.Equal(t, "cod", res.Order.Payment.Method)
}

func TestResolver_MalformedOfflineOrdersAreIgnored(t *testing.T) {
	remoteStore := new(MockRemoteStore)
	store := offlineStore(t, `{not json`)

	resolver := newTestResolver(remoteStore)
	res, err := resolver.Resolve(context.Background(), "OFFLINE-1", model.Anonymous(), store)

	require.NoError(t, err)
	assert.True(t, res.Offline)
	assert.Equal(t, "Valued", res.Order.Customer.FirstName)
}

func TestResolver_MalformedOfflineEntryIsSkipped(t *testing.T) {
	remoteStore := new(MockRemoteStore)
	store := offlineStore(t, `[{"id": "OFFLINE-1", "items": "bad"}, {"id": "OFFLINE-1", "status": "pending"}]`)

	resolver := newTestResolver(remoteStore)
	res, err := resolver.Resolve(context.Background(), "OFFLINE-1", model.Anonymous(), store)

	require.NoError(t, err)
	assert.Equal(t, "pending", res.Order.Status)
	assert.NotEqual(t, "Valued", res.Order.Customer.FirstName)
}

func TestResolver_CreatedAtRepresentations(t *testing.T) {
	tests := []struct {
		name      string
		createdAt string
		expected  time.Time
	}{
		{name: "ISO string", createdAt: `"2024-02-01T12:00:00Z"`, expected: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)},
		{name: "Timestamp object", createdAt: `{"seconds": 1706788800, "nanoseconds": 0}`, expected: time.Unix(1706788800, 0).UTC()},
		{name: "Extended JSON date", createdAt: `{"$date": "2024-02-01T12:00:00Z"}`, expected: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)},
		{name: "Epoch millis", createdAt: `1706788800000`, expected: time.UnixMilli(1706788800000).UTC()},
		{name: "Unrecognised", createdAt: `"yesterday"`, expected: fixedNow},
		{name: "Null", createdAt: `null`, expected: fixedNow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remoteStore := new(MockRemoteStore)
			remoteStore.On("Get", mock.Anything, remote.CollectionOrders, "ord-1").
				Return(remote.Document{"status": json.RawMessage(`"pending"`), "createdAt": json.RawMessage(tt.createdAt)}, nil)

			resolver := newTestResolver(remoteStore)
			res, err := resolver.Resolve(context.Background(), "ord-1", model.Anonymous(), nil)

			require.NoError(t, err)
			assert.False(t, res.Offline)
			assert.True(t, tt.expected.Equal(res.Order.CreatedAt), "expected %s, got %s", tt.expected, res.Order.CreatedAt)
			assert.Equal(t, tt.expected.Format(DisplayDateLayout), res.DisplayDate)
		})
	}
}
