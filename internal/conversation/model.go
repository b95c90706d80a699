package conversation

import (
	"strings"
	"time"
)

// Message is one inbound/outbound exchange with a contact, persisted as a
// single row.
type Message struct {
	ID          string    `json:"id"`
	BusinessID  string    `json:"business_id"`
	Channel     string    `json:"channel"`
	ContactID   string    `json:"contact_id"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	Intent      string    `json:"intent"`
	RuleID      string    `json:"rule_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// InboundMessage is a message arriving from a channel integration.
type InboundMessage struct {
	Channel   string `json:"channel"`
	ContactID string `json:"contact_id"`
	Text      string `json:"text"`
}

// Validate checks the inbound payload and normalizes the channel.
func (m *InboundMessage) Validate() error {
	m.Channel = strings.ToLower(strings.TrimSpace(m.Channel))
	if m.Channel == "" {
		return ErrMissingChannel
	}
	if strings.TrimSpace(m.ContactID) == "" {
		return ErrMissingContact
	}
	if strings.TrimSpace(m.Text) == "" {
		return ErrEmptyMessage
	}
	return nil
}

// InboundResult is what the pipeline hands back to the channel.
type InboundResult struct {
	Reply        string `json:"reply"`
	Intent       string `json:"intent"`
	RuleID       string `json:"rule_id,omitempty"`
	Matched      bool   `json:"matched"`
	FromAssist   bool   `json:"from_assistant"`
	LeadCaptured bool   `json:"lead_captured"`
}
