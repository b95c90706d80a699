package conversation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/convodesk/platform/internal/leads"
	"github.com/convodesk/platform/internal/rules"
)

// Store persists conversation history and aggregates scoring signals
// from it.
type Store interface {
	Append(ctx context.Context, msg *Message) (*Message, error)
	Transcript(ctx context.Context, businessID, channel, contactID string, limit int) ([]*Message, error)
	ContactSignals(ctx context.Context, businessID, channel, contactID string) (leads.Signals, error)
}

// InMemoryStore keeps conversation rows in memory for tests and local
// development.
type InMemoryStore struct {
	mu       sync.RWMutex
	messages []*Message
}

// NewInMemoryStore creates an empty in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Append stores one exchange
func (s *InMemoryStore) Append(ctx context.Context, msg *Message) (*Message, error) {
	cp := *msg
	cp.ID = uuid.New().String()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.messages = append(s.messages, &cp)
	s.mu.Unlock()

	out := cp
	return &out, nil
}

// Transcript returns a contact's exchanges, oldest first.
func (s *InMemoryStore) Transcript(ctx context.Context, businessID, channel, contactID string, limit int) ([]*Message, error) {
	s.mu.RLock()
	var out []*Message
	for _, msg := range s.messages {
		if msg.BusinessID == businessID && msg.Channel == channel && msg.ContactID == contactID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// ContactSignals aggregates scoring inputs from the stored history.
func (s *InMemoryStore) ContactSignals(ctx context.Context, businessID, channel, contactID string) (leads.Signals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var signals leads.Signals
	for _, msg := range s.messages {
		if msg.BusinessID != businessID || msg.Channel != channel || msg.ContactID != contactID {
			continue
		}
		signals.MessageCount++
		if msg.Intent == rules.FallbackIntent {
			signals.FallbackCount++
		}
		if msg.CreatedAt.After(signals.LastActivity) {
			signals.LastActivity = msg.CreatedAt
		}
	}
	return signals, nil
}

// LeadSignalsProvider resolves a lead to its conversation signals so the
// scorer can reward engaged contacts.
type LeadSignalsProvider struct {
	store Store
	leads leads.Repository
}

// NewLeadSignalsProvider wires the conversation store to the lead scorer.
func NewLeadSignalsProvider(store Store, repo leads.Repository) *LeadSignalsProvider {
	return &LeadSignalsProvider{store: store, leads: repo}
}

// LeadSignals implements leads.SignalsProvider. A lead without a channel
// contact has no conversation, which is valid and yields zero signals.
func (p *LeadSignalsProvider) LeadSignals(ctx context.Context, businessID, leadID string) (leads.Signals, error) {
	lead, err := p.leads.GetByID(ctx, businessID, leadID)
	if err != nil {
		return leads.Signals{}, err
	}
	if lead.ContactID == "" {
		return leads.Signals{}, nil
	}
	return p.store.ContactSignals(ctx, businessID, lead.Channel, lead.ContactID)
}
