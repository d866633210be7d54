package models

import "errors"

// Sentinel errors for the core error taxonomy. Handlers translate these to
// HTTP statuses at the boundary; core packages only ever wrap or return them.
var (
	// ErrValidation indicates malformed or missing required fields
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the referenced entity does not exist
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates the actor does not own or is not party to the entity
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict indicates an invalid state transition or an already-reserved slot
	ErrConflict = errors.New("conflict")
)

// ErrorMessageResponse returns the error message response struct
type ErrorMessageResponse struct {
	Response MessageError
}

// MessageError contains the inner details for the error message response
type MessageError struct {
	Message string
	Error   string
}
