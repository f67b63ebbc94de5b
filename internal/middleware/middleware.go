package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"storefront/internal/identity"
	"storefront/internal/model"
	"storefront/internal/storage/local"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Header and cookie names carrying request metadata.
const (
	DeviceIDHeader  = "X-Device-ID"
	DeviceIDCookie  = "device_id"
	RequestIDHeader = "X-Request-ID"
)

const deviceCookieMaxAge = 365 * 24 * 60 * 60

type contextKey int

const (
	deviceIDKey contextKey = iota
	requestIDKey
)

// TokenVerifier turns a bearer token into an identity.
type TokenVerifier interface {
	Verify(token string) (model.Identity, error)
}

// DeviceID returns the device id stored in ctx by Device.
func DeviceID(ctx context.Context) string {
	id, _ := ctx.Value(deviceIDKey).(string)
	return id
}

// RequestIDFromContext returns the request id stored in ctx by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// CORS adds CORS headers to the response.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Device-ID, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Device-ID, X-Request-ID")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequestID tags each request with an id taken from X-Request-ID or
// generated, and echoes it in the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// Device resolves the device id from the X-Device-ID header or the
// device_id cookie. Requests without one get a new id, returned in both the
// header and the cookie. Malformed ids are rejected.
func Device(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip device tracking for health check endpoint
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			deviceID := r.Header.Get(DeviceIDHeader)
			if deviceID == "" {
				if cookie, err := r.Cookie(DeviceIDCookie); err == nil {
					deviceID = cookie.Value
				}
			}

			if deviceID == "" {
				deviceID = uuid.NewString()
				logger.Debug().Str("device_id", deviceID).Msg("issued new device id")
			} else if err := local.ValidateDeviceID(deviceID); err != nil {
				logger.Warn().Str("path", r.URL.Path).Err(err).Msg("invalid device id")
				writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidDevice, "invalid device id")
				return
			}

			w.Header().Set(DeviceIDHeader, deviceID)
			http.SetCookie(w, &http.Cookie{
				Name:     DeviceIDCookie,
				Value:    deviceID,
				Path:     "/",
				MaxAge:   deviceCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), deviceIDKey, deviceID)))
		})
	}
}

// Identity verifies the bearer token, if any, and stores the resulting
// identity in the request context. Requests without a token are anonymous;
// requests with an invalid token are rejected.
func Identity(verifier TokenVerifier, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := identity.TokenFromRequest(r)
			if errors.Is(err, identity.ErrMissingToken) {
				next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), model.Anonymous())))
				return
			}

			var id model.Identity
			if err == nil {
				id, err = verifier.Verify(token)
			}
			if err != nil {
				logger.Warn().Str("path", r.URL.Path).Err(err).Msg("rejected bearer token")
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthorised.Message)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

// Logging logs HTTP requests with timing information.
func Logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create a response writer wrapper to capture status code
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.statusCode).
				Dur("duration", duration).
				Str("remote_addr", r.RemoteAddr).
				Str("request_id", RequestIDFromContext(r.Context())).
				Msg("http request")
		})
	}
}

// Recovery recovers from panics and returns a 500 error.
func Recovery(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error().
						Interface("panic", err).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: RequestIDFromContext(r.Context()),
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
