package knowledge

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Entry is one piece of business knowledge the assistant can ground its
// answers on. Keywords drive retrieval; inactive entries are kept for the
// admin UI but never surfaced to the assistant.
type Entry struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Keywords   []string  `json:"keywords"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var (
	ErrMissingBusinessID = errors.New("business_id is required")
	ErrMissingTitle      = errors.New("title is required")
	ErrMissingContent    = errors.New("content is required")
	ErrEntryNotFound     = errors.New("knowledge entry not found")
)

// CreateEntryRequest represents the request body for creating an entry.
// IsActive defaults to true when omitted.
type CreateEntryRequest struct {
	BusinessID string   `json:"-"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Keywords   []string `json:"keywords"`
	IsActive   *bool    `json:"is_active"`
}

// Validate validates the create entry request
func (r *CreateEntryRequest) Validate() error {
	if strings.TrimSpace(r.BusinessID) == "" {
		return ErrMissingBusinessID
	}
	if strings.TrimSpace(r.Title) == "" {
		return ErrMissingTitle
	}
	if strings.TrimSpace(r.Content) == "" {
		return ErrMissingContent
	}
	return nil
}

// UpdateEntryRequest carries partial updates; nil fields are left unchanged.
type UpdateEntryRequest struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	Keywords *[]string `json:"keywords"`
	IsActive *bool     `json:"is_active"`
}

func (r *CreateEntryRequest) active() bool {
	return r.IsActive == nil || *r.IsActive
}

// decodeKeywords parses a persisted keywords column. The column holds a JSON
// array of strings; non-string entries are skipped and malformed JSON yields
// nil so a corrupt entry simply never matches.
func decodeKeywords(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var direct []string
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct
	}
	var mixed []any
	if err := json.Unmarshal(raw, &mixed); err != nil {
		return nil
	}
	out := make([]string, 0, len(mixed))
	for _, v := range mixed {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func encodeKeywords(keywords []string) []byte {
	if keywords == nil {
		keywords = []string{}
	}
	data, _ := json.Marshal(keywords)
	return data
}
