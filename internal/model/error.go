package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Current Status `json:"currentStatus,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeMissingField      = "MISSING_FIELD"
	ErrCodeInvalidQuantity   = "INVALID_QUANTITY"
	ErrCodeInvalidStatus     = "INVALID_STATUS"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeStaleStatus       = "STALE_STATUS"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeMenuItemNotFound  = "MENU_ITEM_NOT_FOUND"
	ErrCodeUnknownCanteen    = "UNKNOWN_CANTEEN"
	ErrCodeDuplicateOrder    = "DUPLICATE_ORDER"
	ErrCodeScanUnreadable    = "SCAN_UNREADABLE"
	ErrCodeNotReady          = "NOT_READY_FOR_PICKUP"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeRepository        = "REPOSITORY_ERROR"
	ErrCodeInternalError     = "INTERNAL_ERROR"
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
	ErrInvalidQuantity   = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidTransition = NewDomainError(ErrCodeInvalidTransition, "Status transition is not permitted")
	ErrStatusConflict    = NewDomainError(ErrCodeStaleStatus, "Order status changed since it was read")
	ErrOrderNotFound     = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrMenuItemNotFound  = NewDomainError(ErrCodeMenuItemNotFound, "One or more menu items are unavailable")
	ErrUnknownCanteen    = NewDomainError(ErrCodeUnknownCanteen, "Canteen is not recognised")
	ErrDuplicateOrder    = NewDomainError(ErrCodeDuplicateOrder, "Order number or QR code already exists")
	ErrForbidden         = NewDomainError(ErrCodeForbidden, "Actor is not allowed to perform this action")
	ErrRepository        = NewDomainError(ErrCodeRepository, "Order store is unavailable")
	ErrScanUnreadable    = NewDomainError(ErrCodeScanUnreadable, "Scanned code could not be read")
	ErrNotReadyForPickup = NewDomainError(ErrCodeNotReady, "Order is not ready for pickup")
)
