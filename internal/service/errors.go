package service

import "net/http"

// Error represents a custody domain error with a stable code and the HTTP
// status the API layer maps it to
type Error struct {
	Message    string
	StatusCode int
	Code       string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// NewMissingFieldError creates an error for incomplete caller input
func NewMissingFieldError(message string) *Error {
	return &Error{Message: message, StatusCode: http.StatusBadRequest, Code: "MISSING_FIELD"}
}

// NewNotFoundError creates an error for an absent batch, shipment or organization
func NewNotFoundError(message string) *Error {
	return &Error{Message: message, StatusCode: http.StatusNotFound, Code: "NOT_FOUND"}
}

// NewInvalidStateError creates an error for inactive, expired or redeemed records
func NewInvalidStateError(message string) *Error {
	return &Error{Message: message, StatusCode: http.StatusBadRequest, Code: "INVALID_STATE"}
}

// NewForbiddenError creates an error for a caller that is not the authorized
// actor for a transition
func NewForbiddenError(message string) *Error {
	return &Error{Message: message, StatusCode: http.StatusForbidden, Code: "FORBIDDEN"}
}

// NewInsufficientQuantityError creates an error for over-allocating reservations
func NewInsufficientQuantityError(message string) *Error {
	return &Error{Message: message, StatusCode: http.StatusBadRequest, Code: "INSUFFICIENT_QUANTITY"}
}

// NewConflictError creates an error for duplicate mint ids or tx hashes
func NewConflictError(message string) *Error {
	return &Error{Message: message, StatusCode: http.StatusConflict, Code: "CONFLICT"}
}

// NewInternalError creates an error for persistence or unexpected failures
func NewInternalError(message string) *Error {
	return &Error{Message: message, StatusCode: http.StatusInternalServerError, Code: "INTERNAL_ERROR"}
}
