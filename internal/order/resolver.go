// Package order resolves the order shown on the confirmation page.
package order

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"storefront/internal/model"
	"storefront/internal/storage/local"
	"storefront/internal/storage/remote"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultOfflinePrefix marks order ids assigned while the remote store was
// unreachable at checkout.
const DefaultOfflinePrefix = "OFFLINE-"

// DisplayDateLayout formats the order date for the confirmation page.
const DisplayDateLayout = "January 2, 2006"

// Defaults holds the values of the placeholder order returned when an order
// cannot be found anywhere.
type Defaults struct {
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	Address       string
	City          string
	State         string
	PostalCode    string
	PaymentMethod string
}

// DefaultDefaults returns the stock placeholder values.
func DefaultDefaults() Defaults {
	return Defaults{
		FirstName:     "Valued",
		LastName:      "Customer",
		Email:         "customer@example.com",
		Phone:         "1234567890",
		Address:       "123 Main St",
		City:          "Mumbai",
		State:         "Maharashtra",
		PostalCode:    "400001",
		PaymentMethod: "cashfree",
	}
}

// Resolution is the outcome of resolving an order id.
type Resolution struct {
	Order *model.Order `json:"order"`
	// Offline is false only when the order came from the remote store.
	Offline     bool   `json:"offline"`
	DisplayDate string `json:"displayDate"`
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithOfflinePrefix overrides the prefix of offline order ids.
func WithOfflinePrefix(prefix string) Option {
	return func(r *Resolver) {
		r.offlinePrefix = prefix
	}
}

// WithDefaults overrides the placeholder order values.
func WithDefaults(defaults Defaults) Option {
	return func(r *Resolver) {
		r.defaults = defaults
	}
}

// WithClock overrides the time source used for placeholder and missing dates.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// Resolver finds an order in the remote store, then in the device's offline
// orders, and falls back to a placeholder so the confirmation page always
// has something to show.
type Resolver struct {
	remote        remote.Store
	offlinePrefix string
	defaults      Defaults
	now           func() time.Time
	logger        zerolog.Logger
}

// NewResolver creates a new order resolver.
func NewResolver(remoteStore remote.Store, logger zerolog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		remote:        remoteStore,
		offlinePrefix: DefaultOfflinePrefix,
		defaults:      DefaultDefaults(),
		now:           time.Now,
		logger:        logger.With().Str("component", "order-resolver").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the order with orderID as seen by identity. offline holds
// the device's offline orders. Only a missing id is an error; every lookup
// failure degrades to the next source.
func (r *Resolver) Resolve(ctx context.Context, orderID string, identity model.Identity, offline local.Store) (*Resolution, error) {
	if orderID == "" {
		return nil, model.ErrMissingOrderID
	}

	log := r.logger.With().Str("order_id", orderID).Str("identity", identity.String()).Logger()

	if !r.IsOffline(orderID) {
		if order := r.fromRemote(ctx, orderID, log); order != nil {
			return r.resolution(order, false), nil
		}
	}

	if order := r.fromLocal(ctx, orderID, offline, log); order != nil {
		log.Debug().Msg("order resolved from offline orders")
		return r.resolution(order, true), nil
	}

	log.Warn().Msg("order not found, returning placeholder")
	return r.resolution(r.placeholder(orderID, identity), true), nil
}

// IsOffline reports whether orderID was assigned offline and therefore never
// exists in the remote store.
func (r *Resolver) IsOffline(orderID string) bool {
	return r.offlinePrefix != "" && strings.HasPrefix(orderID, r.offlinePrefix)
}

func (r *Resolver) fromRemote(ctx context.Context, orderID string, log zerolog.Logger) *model.Order {
	doc, err := r.remote.Get(ctx, remote.CollectionOrders, orderID)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch order from remote store")
		return nil
	}
	if doc == nil {
		log.Debug().Msg("order not in remote store")
		return nil
	}

	order, err := remote.DecodeOrder(orderID, doc)
	if err != nil {
		log.Warn().Err(err).Msg("invalid order in remote store")
		return nil
	}
	return order
}

func (r *Resolver) fromLocal(ctx context.Context, orderID string, store local.Store, log zerolog.Logger) *model.Order {
	if store == nil {
		return nil
	}

	var entries []json.RawMessage
	if _, err := local.GetJSON(ctx, store, local.SlotOfflineOrders, &entries); err != nil {
		log.Warn().Err(err).Msg("failed to read offline orders, treating as empty")
		return nil
	}

	for _, entry := range entries {
		var key struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(entry, &key); err != nil || key.ID != orderID {
			continue
		}

		var order model.Order
		if err := json.Unmarshal(entry, &order); err != nil {
			log.Warn().Err(err).Msg("skipping malformed offline order")
			continue
		}
		return &order
	}
	return nil
}

func (r *Resolver) placeholder(orderID string, identity model.Identity) *model.Order {
	email := r.defaults.Email
	if identity.Authenticated() && identity.Email != "" {
		email = identity.Email
	}

	return &model.Order{
		ID: orderID,
		Customer: model.Customer{
			FirstName: r.defaults.FirstName,
			LastName:  r.defaults.LastName,
			Email:     email,
			Phone:     r.defaults.Phone,
		},
		ShippingAddress: model.ShippingAddress{
			Address:    r.defaults.Address,
			City:       r.defaults.City,
			State:      r.defaults.State,
			PostalCode: r.defaults.PostalCode,
		},
		Items: []model.LineItem{},
		Amounts: model.Amounts{
			Subtotal: decimal.Zero,
			Shipping: decimal.Zero,
			Tax:      decimal.Zero,
			Total:    decimal.Zero,
		},
		Payment: model.Payment{
			Method: r.defaults.PaymentMethod,
			Status: model.PaymentStatusProcessing,
		},
		Status:    model.OrderStatusPending,
		CreatedAt: r.now(),
	}
}

func (r *Resolver) resolution(order *model.Order, offline bool) *Resolution {
	if order.Items == nil {
		order.Items = []model.LineItem{}
	}
	order.CreatedAt = model.NormalizeTimestamp(order.CreatedAt, r.now())

	return &Resolution{
		Order:       order,
		Offline:     offline,
		DisplayDate: order.CreatedAt.Format(DisplayDateLayout),
	}
}
