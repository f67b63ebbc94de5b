package router

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	cartHandler *handler.CartHandler,
	wishlistHandler *handler.WishlistHandler,
	orderHandler *handler.OrderHandler,
	verifier middleware.TokenVerifier,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no device or identity required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	api := http.NewServeMux()

	api.HandleFunc("GET /api/cart", cartHandler.Get)
	api.HandleFunc("DELETE /api/cart", cartHandler.Clear)
	api.HandleFunc("POST /api/cart/items", cartHandler.AddItem)
	api.HandleFunc("PUT /api/cart/items/{id}", cartHandler.UpdateQuantity)
	api.HandleFunc("DELETE /api/cart/items/{id}", cartHandler.RemoveItem)

	api.HandleFunc("GET /api/wishlist", wishlistHandler.Get)
	api.HandleFunc("DELETE /api/wishlist", wishlistHandler.Clear)
	api.HandleFunc("POST /api/wishlist/items", wishlistHandler.AddItem)
	api.HandleFunc("GET /api/wishlist/items/{id}", wishlistHandler.Contains)
	api.HandleFunc("DELETE /api/wishlist/items/{id}", wishlistHandler.RemoveItem)

	api.HandleFunc("GET /api/orders/confirmation", orderHandler.Confirmation)

	// Device and identity only apply to API routes
	var apiHandler http.Handler = api
	apiHandler = middleware.Identity(verifier, logger)(apiHandler)
	apiHandler = middleware.Device(logger)(apiHandler)
	mux.Handle("/api/", apiHandler)

	// Apply middleware in order: Recovery -> RequestID -> Logging -> CORS
	var handler http.Handler = mux
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
