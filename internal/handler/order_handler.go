package handler

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/identity"
	"storefront/internal/model"
	"storefront/internal/order"
	"storefront/internal/storage/local"

	"github.com/rs/zerolog"
)

// OrderResolver resolves the order shown on the confirmation page.
type OrderResolver interface {
	Resolve(ctx context.Context, orderID string, identity model.Identity, offline local.Store) (*order.Resolution, error)
}

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	sessions SessionProvider
	resolver OrderResolver
	redirect string
	logger   zerolog.Logger
}

// NewOrderHandler creates a new order handler. Requests without an order id
// are redirected to redirect.
func NewOrderHandler(sessions SessionProvider, resolver OrderResolver, redirect string, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		sessions: sessions,
		resolver: resolver,
		redirect: redirect,
		logger:   logger.With().Str("handler", "order").Logger(),
	}
}

// Confirmation handles GET /api/orders/confirmation?id= requests.
func (h *OrderHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("id")
	if orderID == "" {
		h.logger.Debug().Str("redirect", h.redirect).Msg("no order id, redirecting")
		http.Redirect(w, r, h.redirect, http.StatusSeeOther)
		return
	}

	s, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}

	resolution, err := h.resolver.Resolve(r.Context(), orderID, identity.FromContext(r.Context()), s.Store())
	if err != nil {
		if errors.Is(err, model.ErrMissingOrderID) {
			writeDomainError(w, r, http.StatusBadRequest, model.ErrMissingOrderID, h.logger)
			return
		}
		h.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to resolve order")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to resolve order", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resolution)
}
