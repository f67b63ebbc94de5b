package handler

import (
	"encoding/json"
	"net/http"

	"storefront/internal/collection"
	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CartResponse is the cart as returned to clients.
type CartResponse struct {
	Items      []model.Item    `json:"items"`
	TotalItems int             `json:"totalItems"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

func newCartResponse(cart *collection.Cart) CartResponse {
	return CartResponse{
		Items:      cart.Items(),
		TotalItems: cart.TotalItems(),
		Subtotal:   cart.Subtotal(),
	}
}

// CartHandler handles cart HTTP requests.
type CartHandler struct {
	sessions SessionProvider
	logger   zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(sessions SessionProvider, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		logger:   logger.With().Str("handler", "cart").Logger(),
	}
}

// Get handles GET /api/cart requests.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(s.Cart))
}

// AddItem handles POST /api/cart/items requests.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var item model.Item
	if err := decodeBody(w, r, &item); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if err := item.Validate(); err != nil {
		writeDomainError(w, r, http.StatusBadRequest, model.ErrInvalidItem, h.logger)
		return
	}

	s, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	if err := s.Cart.AddItem(r.Context(), item); err != nil {
		mutationFailed(w, r, err, h.logger)
		return
	}

	h.logger.Debug().Str("device_id", s.DeviceID).Int("item_id", item.ID).Msg("item added to cart")
	writeJSON(w, http.StatusOK, newCartResponse(s.Cart))
}

// UpdateQuantity handles PUT /api/cart/items/{id} requests. A quantity of
// zero or less removes the item.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r, h.logger)
	if !ok {
		return
	}

	var req struct {
		Quantity json.RawMessage `json:"quantity"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if len(req.Quantity) == 0 || string(req.Quantity) == "null" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "quantity is required", h.logger)
		return
	}

	var quantity int
	if err := json.Unmarshal(req.Quantity, &quantity); err != nil {
		writeDomainError(w, r, http.StatusBadRequest, model.ErrInvalidQuantity, h.logger)
		return
	}

	s, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	if err := s.Cart.UpdateQuantity(r.Context(), id, quantity); err != nil {
		mutationFailed(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(s.Cart))
}

// RemoveItem handles DELETE /api/cart/items/{id} requests.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r, h.logger)
	if !ok {
		return
	}

	s, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	if err := s.Cart.RemoveItem(r.Context(), id); err != nil {
		mutationFailed(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(s.Cart))
}

// Clear handles DELETE /api/cart requests.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	if err := s.Cart.Clear(r.Context()); err != nil {
		mutationFailed(w, r, err, h.logger)
		return
	}

	h.logger.Debug().Str("device_id", s.DeviceID).Msg("cart cleared")
	writeJSON(w, http.StatusOK, newCartResponse(s.Cart))
}
