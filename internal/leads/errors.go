package leads

import "errors"

var (
	// ErrMissingBusinessID is returned when the tenant scope is absent
	ErrMissingBusinessID = errors.New("business id is required")

	// ErrMissingChannel is returned when the originating channel is absent
	ErrMissingChannel = errors.New("channel is required")

	// ErrMissingContact is returned when no identifying contact data is present
	ErrMissingContact = errors.New("at least one of name, email, phone or contact id is required")

	// ErrInvalidStatus is returned for a status outside the pipeline
	ErrInvalidStatus = errors.New("invalid lead status")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")
)
