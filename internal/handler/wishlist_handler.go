package handler

import (
	"net/http"

	"storefront/internal/collection"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// WishlistResponse is the wishlist as returned to clients.
type WishlistResponse struct {
	Items      []model.Item `json:"items"`
	TotalItems int          `json:"totalItems"`
}

func newWishlistResponse(wishlist *collection.Wishlist) WishlistResponse {
	return WishlistResponse{
		Items:      wishlist.Items(),
		TotalItems: wishlist.TotalItems(),
	}
}

// WishlistHandler handles wishlist HTTP requests.
type WishlistHandler struct {
	sessions SessionProvider
	logger   zerolog.Logger
}

// NewWishlistHandler creates a new wishlist handler.
func NewWishlistHandler(sessions SessionProvider, logger zerolog.Logger) *WishlistHandler {
	return &WishlistHandler{
		sessions: sessions,
		logger:   logger.With().Str("handler", "wishlist").Logger(),
	}
}

// Get handles GET /api/wishlist requests.
func (h *WishlistHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newWishlistResponse(s.Wishlist))
}

// AddItem handles POST /api/wishlist/items requests.
func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
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
	if err := s.Wishlist.AddItem(r.Context(), item); err != nil {
		mutationFailed(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newWishlistResponse(s.Wishlist))
}

// Contains handles GET /api/wishlist/items/{id} requests.
func (h *WishlistHandler) Contains(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r, h.logger)
	if !ok {
		return
	}

	s, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"inWishlist": s.Wishlist.IsInWishlist(id)})
}

// RemoveItem handles DELETE /api/wishlist/items/{id} requests.
func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r, h.logger)
	if !ok {
		return
	}

	s, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	if err := s.Wishlist.RemoveItem(r.Context(), id); err != nil {
		mutationFailed(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newWishlistResponse(s.Wishlist))
}

// Clear handles DELETE /api/wishlist requests.
func (h *WishlistHandler) Clear(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionFor(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	if err := s.Wishlist.Clear(r.Context()); err != nil {
		mutationFailed(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, newWishlistResponse(s.Wishlist))
}
