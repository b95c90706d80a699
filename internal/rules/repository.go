package rules

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for rule storage
type Repository interface {
	Create(ctx context.Context, req *CreateRuleRequest) (*Rule, error)
	GetByID(ctx context.Context, businessID, id string) (*Rule, error)
	List(ctx context.Context, businessID string, filter ListRulesFilter) ([]*Rule, int, error)
	Update(ctx context.Context, businessID, id string, req *UpdateRuleRequest) (*Rule, error)
	Delete(ctx context.Context, businessID, id string) error
	BulkDelete(ctx context.Context, businessID string, ids []string) (int, error)

	// ListActive returns the active rules for a business in match order
	// (priority ascending, id ascending).
	ListActive(ctx context.Context, businessID string) ([]*Rule, error)

	// IncrementTrigger atomically bumps trigger_count and stamps
	// last_triggered_at for a matched rule.
	IncrementTrigger(ctx context.Context, id string) error
}

// InMemoryRepository is an in-memory implementation of Repository used by
// tests and local development.
type InMemoryRepository struct {
	mu    sync.RWMutex
	rules map[string]*Rule
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		rules: make(map[string]*Rule),
	}
}

// Create creates a new rule in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateRuleRequest) (*Rule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rule := &Rule{
		ID:          uuid.New().String(),
		BusinessID:  req.BusinessID,
		Intent:      strings.ToLower(strings.TrimSpace(req.Intent)),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Keywords:    append([]string(nil), req.Keywords...),
		Response:    strings.TrimSpace(req.Response),
		Priority:    DefaultPriority,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	r.mu.Lock()
	r.rules[rule.ID] = rule
	r.mu.Unlock()

	return rule, nil
}

// GetByID retrieves a rule scoped to the business
func (r *InMemoryRepository) GetByID(ctx context.Context, businessID, id string) (*Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[id]
	if !ok || rule.BusinessID != businessID {
		return nil, ErrRuleNotFound
	}
	cp := *rule
	return &cp, nil
}

// List returns rules for a business with optional filters, ordered by
// priority ascending then id ascending.
func (r *InMemoryRepository) List(ctx context.Context, businessID string, filter ListRulesFilter) ([]*Rule, int, error) {
	r.mu.RLock()
	var matched []*Rule
	for _, rule := range r.rules {
		if rule.BusinessID != businessID {
			continue
		}
		if filter.Intent != "" && rule.Intent != filter.Intent {
			continue
		}
		if filter.IsActive != nil && rule.IsActive != *filter.IsActive {
			continue
		}
		cp := *rule
		matched = append(matched, &cp)
	}
	r.mu.RUnlock()

	SortForMatching(matched)
	total := len(matched)

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

// Update applies a partial update to a rule
func (r *InMemoryRepository) Update(ctx context.Context, businessID, id string, req *UpdateRuleRequest) (*Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.rules[id]
	if !ok || rule.BusinessID != businessID {
		return nil, ErrRuleNotFound
	}
	if req.Intent != nil {
		rule.Intent = strings.ToLower(strings.TrimSpace(*req.Intent))
	}
	if req.Name != nil {
		rule.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		rule.Description = strings.TrimSpace(*req.Description)
	}
	if req.Keywords != nil {
		rule.Keywords = append([]string(nil), (*req.Keywords)...)
	}
	if req.Response != nil {
		rule.Response = strings.TrimSpace(*req.Response)
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	rule.UpdatedAt = time.Now().UTC()

	cp := *rule
	return &cp, nil
}

// Delete removes a rule
func (r *InMemoryRepository) Delete(ctx context.Context, businessID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.rules[id]
	if !ok || rule.BusinessID != businessID {
		return ErrRuleNotFound
	}
	delete(r.rules, id)
	return nil
}

// BulkDelete removes rules by id, skipping ids outside the business scope.
func (r *InMemoryRepository) BulkDelete(ctx context.Context, businessID string, ids []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		if rule, ok := r.rules[id]; ok && rule.BusinessID == businessID {
			delete(r.rules, id)
			deleted++
		}
	}
	return deleted, nil
}

// ListActive returns active rules in match order
func (r *InMemoryRepository) ListActive(ctx context.Context, businessID string) ([]*Rule, error) {
	r.mu.RLock()
	var active []*Rule
	for _, rule := range r.rules {
		if rule.BusinessID == businessID && rule.IsActive {
			cp := *rule
			active = append(active, &cp)
		}
	}
	r.mu.RUnlock()

	SortForMatching(active)
	return active, nil
}

// IncrementTrigger bumps trigger stats for a matched rule
func (r *InMemoryRepository) IncrementTrigger(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.rules[id]
	if !ok {
		return ErrRuleNotFound
	}
	rule.TriggerCount++
	now := time.Now().UTC()
	rule.LastTriggeredAt = &now
	return nil
}
