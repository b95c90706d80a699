package rules

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// DefaultPriority is assigned when a rule is created without an explicit
// priority. Lower values are evaluated first.
const DefaultPriority = 100

// Rule maps a set of keywords to an intent and a canned response for one
// business. Matching resolves by priority ascending, id ascending.
type Rule struct {
	ID              string     `json:"id"`
	BusinessID      string     `json:"business_id"`
	Intent          string     `json:"intent"`
	Name            string     `json:"name,omitempty"`
	Description     string     `json:"description,omitempty"`
	Keywords        []string   `json:"keywords"`
	Response        string     `json:"response"`
	Priority        int        `json:"priority"`
	IsActive        bool       `json:"is_active"`
	TriggerCount    int64      `json:"trigger_count"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateRuleRequest represents the request body for creating a rule
type CreateRuleRequest struct {
	BusinessID  string   `json:"-"`
	Intent      string   `json:"intent"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Response    string   `json:"response"`
	Priority    *int     `json:"priority"`
	IsActive    *bool    `json:"is_active"`
}

// Validate validates the create rule request
func (r *CreateRuleRequest) Validate() error {
	if strings.TrimSpace(r.BusinessID) == "" {
		return ErrMissingBusinessID
	}
	if strings.TrimSpace(r.Intent) == "" {
		return ErrMissingIntent
	}
	if len(r.Keywords) == 0 {
		return ErrMissingKeywords
	}
	if strings.TrimSpace(r.Response) == "" {
		return ErrMissingResponse
	}
	return nil
}

// UpdateRuleRequest carries partial updates; nil fields are left unchanged.
type UpdateRuleRequest struct {
	Intent      *string   `json:"intent"`
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Keywords    *[]string `json:"keywords"`
	Response    *string   `json:"response"`
	Priority    *int      `json:"priority"`
	IsActive    *bool     `json:"is_active"`
}

// ListRulesFilter narrows a rule listing.
type ListRulesFilter struct {
	Intent   string
	IsActive *bool
	Limit    int
	Offset   int
}

// SortForMatching orders rules by the matcher's total order: priority
// ascending, then id ascending for determinism across backing stores.
func SortForMatching(rr []*Rule) {
	sort.SliceStable(rr, func(i, j int) bool {
		if rr[i].Priority != rr[j].Priority {
			return rr[i].Priority < rr[j].Priority
		}
		return rr[i].ID < rr[j].ID
	})
}

// decodeKeywords parses a persisted keywords column. The column holds a JSON
// array of strings, but legacy rows may contain mixed types or garbage.
// Non-string entries are skipped; malformed JSON yields nil so a corrupt rule
// simply never matches instead of aborting the whole pass.
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
