package shared

import "fmt"

// DomainError pairs a stable machine code with a human message. Handlers map
// the code onto an HTTP status, so codes are part of the API surface.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewInvalidStateError builds an INVALID_STATE error that names the current and
// required state so an operator can diagnose a rejected transition.
func NewInvalidStateError(entity, current, required string) *DomainError {
	return NewDomainError("INVALID_STATE",
		fmt.Sprintf("%s is in state %s, operation requires %s", entity, current, required))
}

var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConflict            = NewDomainError("CONFLICT", "A request with the same idempotency key is already in progress")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrDuplicateClosing    = NewDomainError("DUPLICATE_CLOSING", "A cash closing already exists for this account and date")
	ErrNonIdempotent       = NewDomainError("NON_IDEMPOTENT", "Operation requires an idempotency key")
)
