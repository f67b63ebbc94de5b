package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeMissingField    = "MISSING_FIELD"
	ErrCodeMissingOrderID  = "MISSING_ORDER_ID"
	ErrCodeInvalidItem     = "INVALID_ITEM"
	ErrCodeInvalidQuantity = "INVALID_QUANTITY"
	ErrCodeInvalidDevice   = "INVALID_DEVICE"
	ErrCodeUnauthorised    = "UNAUTHORIZED"
	ErrCodeUnavailable     = "COLLECTION_UNAVAILABLE"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrMissingOrderID  = NewDomainError(ErrCodeMissingOrderID, "Order ID is required")
	ErrInvalidItem     = NewDomainError(ErrCodeInvalidItem, "Item must have a positive ID and a non-negative price")
	ErrInvalidQuantity = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be an integer")
	ErrUnauthorised    = NewDomainError(ErrCodeUnauthorised, "Invalid or expired token")
)
