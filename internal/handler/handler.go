package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/collection"
	"storefront/internal/identity"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/session"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// SessionProvider returns the session of a device bound to an identity.
type SessionProvider interface {
	Get(ctx context.Context, deviceID string, identity model.Identity) (*session.Session, error)
}

// writeJSON writes a JSON response with the given status code. Encoding
// errors are dropped since the status line has already been sent.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code, error code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	correlationID := middleware.RequestIDFromContext(r.Context())

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).
		Str("error", message).
		Int("status", status).
		Str("request_id", correlationID).
		Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: correlationID,
	})
}

// writeDomainError renders a domain error with the given status code.
func writeDomainError(w http.ResponseWriter, r *http.Request, status int, err *model.DomainError, logger zerolog.Logger) {
	writeError(w, r, status, err.Code, err.Message, logger)
}

// decodeBody decodes a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// sessionFor returns the session of the requesting device, writing an error
// response when there is none.
func sessionFor(w http.ResponseWriter, r *http.Request, sessions SessionProvider, logger zerolog.Logger) (*session.Session, bool) {
	deviceID := middleware.DeviceID(r.Context())
	if deviceID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidDevice, "device id is required", logger)
		return nil, false
	}

	s, err := sessions.Get(r.Context(), deviceID, identity.FromContext(r.Context()))
	if err != nil {
		logger.Error().Err(err).Str("device_id", deviceID).Msg("failed to open session")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to open session", logger)
		return nil, false
	}
	return s, true
}

// itemID parses the {id} path value.
func itemID(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidItem, "item id must be a positive integer", logger)
		return 0, false
	}
	return id, true
}

// mutationFailed reports a mutation that was not applied, either because
// the stored collection could not be read or because the request context
// ended.
func mutationFailed(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	logger.Warn().Err(err).Str("path", r.URL.Path).Msg("mutation aborted")
	if errors.Is(err, collection.ErrNotLoaded) {
		writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeUnavailable, "stored collection is unavailable, retry later", logger)
		return
	}
	writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeInternalError, "request cancelled", logger)
}
