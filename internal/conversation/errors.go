package conversation

import "errors"

var (
	ErrMissingChannel = errors.New("channel is required")
	ErrMissingContact = errors.New("contact_id is required")
	ErrEmptyMessage   = errors.New("text is required")
)
