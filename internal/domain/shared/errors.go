package shared

import "fmt"

// Error codes shared by every bounded context
const (
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInvalidState        = "INVALID_STATE"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeReasonRequired      = "REASON_REQUIRED"
	CodeNothingToReturn     = "NOTHING_TO_RETURN"
	CodeCorruptCollection   = "CORRUPT_COLLECTION"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so that a specific
// error created with NewDomainError matches the package sentinel for its code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
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
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrReasonRequired      = NewDomainError(CodeReasonRequired, "A reason is required for this operation")
	ErrNothingToReturn     = NewDomainError(CodeNothingToReturn, "No quantity was requested for return")
	ErrCorruptCollection   = NewDomainError(CodeCorruptCollection, "Stored collection is not a JSON array")
)

// NotFoundError is returned by every lookup-then-mutate operation whose
// target does not exist. It matches ErrNotFound with errors.Is.
type NotFoundError struct {
	Entity string
	ID     string
}

// NewNotFoundError creates a NotFoundError for the given entity kind and id
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// Unwrap exposes ErrNotFound so callers can use errors.Is and errors.As
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
