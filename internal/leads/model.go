package leads

import (
	"strings"
	"time"
)

// Lead statuses form the pipeline a lead moves through.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusQualified = "qualified"
	StatusConverted = "converted"
)

// ValidStatus reports whether s is a known pipeline status.
func ValidStatus(s string) bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusConverted:
		return true
	}
	return false
}

// Lead represents a prospective customer captured from a conversation or
// created directly by an agent.
type Lead struct {
	ID           string    `json:"id"`
	BusinessID   string    `json:"business_id"`
	Channel      string    `json:"channel"`
	ContactID    string    `json:"contact_id,omitempty"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Status       string    `json:"status"`
	SourceIntent string    `json:"source_intent,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateLeadRequest represents the request body for creating a lead
type CreateLeadRequest struct {
	BusinessID   string `json:"-"`
	Channel      string `json:"channel"`
	ContactID    string `json:"contact_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	SourceIntent string `json:"source_intent"`
	Notes        string `json:"notes"`
}

// Validate validates the create lead request
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.BusinessID) == "" {
		return ErrMissingBusinessID
	}
	if strings.TrimSpace(r.Channel) == "" {
		return ErrMissingChannel
	}
	if r.Name == "" && r.Email == "" && r.Phone == "" && r.ContactID == "" {
		return ErrMissingContact
	}
	return nil
}

// UpdateLeadRequest carries partial updates; nil fields are left unchanged.
type UpdateLeadRequest struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Status       *string `json:"status"`
	SourceIntent *string `json:"source_intent"`
	Notes        *string `json:"notes"`
}

// Validate checks the status value if one is being set.
func (r *UpdateLeadRequest) Validate() error {
	if r.Status != nil && !ValidStatus(*r.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// ListLeadsFilter narrows a lead listing.
type ListLeadsFilter struct {
	Status  string
	Channel string
	Limit   int
	Offset  int
}
