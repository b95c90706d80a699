package leads

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage
type Repository interface {
	Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error)
	GetByID(ctx context.Context, businessID, id string) (*Lead, error)
	List(ctx context.Context, businessID string, filter ListLeadsFilter) ([]*Lead, int, error)
	Update(ctx context.Context, businessID, id string, req *UpdateLeadRequest) (*Lead, error)
	Delete(ctx context.Context, businessID, id string) error
	BulkDelete(ctx context.Context, businessID string, ids []string) (int, error)

	// FindByContact locates an existing lead for a channel contact so the
	// conversation pipeline can avoid capturing duplicates.
	FindByContact(ctx context.Context, businessID, channel, contactID string) (*Lead, error)
}

// InMemoryRepository is an in-memory implementation of Repository used by
// tests and local development.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
	}
}

// Create creates a new lead in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	lead := &Lead{
		ID:           uuid.New().String(),
		BusinessID:   req.BusinessID,
		Channel:      strings.ToLower(strings.TrimSpace(req.Channel)),
		ContactID:    req.ContactID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Status:       StatusNew,
		SourceIntent: req.SourceIntent,
		Notes:        req.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.mu.Lock()
	r.leads[lead.ID] = lead
	r.mu.Unlock()

	cp := *lead
	return &cp, nil
}

// GetByID retrieves a lead scoped to the business
func (r *InMemoryRepository) GetByID(ctx context.Context, businessID, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok || lead.BusinessID != businessID {
		return nil, ErrLeadNotFound
	}
	cp := *lead
	return &cp, nil
}

// List returns leads for a business, newest first.
func (r *InMemoryRepository) List(ctx context.Context, businessID string, filter ListLeadsFilter) ([]*Lead, int, error) {
	r.mu.RLock()
	var matched []*Lead
	for _, lead := range r.leads {
		if lead.BusinessID != businessID {
			continue
		}
		if filter.Status != "" && lead.Status != filter.Status {
			continue
		}
		if filter.Channel != "" && lead.Channel != filter.Channel {
			continue
		}
		cp := *lead
		matched = append(matched, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
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

// Update applies a partial update to a lead
func (r *InMemoryRepository) Update(ctx context.Context, businessID, id string, req *UpdateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok || lead.BusinessID != businessID {
		return nil, ErrLeadNotFound
	}
	if req.Name != nil {
		lead.Name = *req.Name
	}
	if req.Email != nil {
		lead.Email = *req.Email
	}
	if req.Phone != nil {
		lead.Phone = *req.Phone
	}
	if req.Status != nil {
		lead.Status = *req.Status
	}
	if req.SourceIntent != nil {
		lead.SourceIntent = *req.SourceIntent
	}
	if req.Notes != nil {
		lead.Notes = *req.Notes
	}
	lead.UpdatedAt = time.Now().UTC()

	cp := *lead
	return &cp, nil
}

// Delete removes a lead (hard delete, no tombstone)
func (r *InMemoryRepository) Delete(ctx context.Context, businessID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok || lead.BusinessID != businessID {
		return ErrLeadNotFound
	}
	delete(r.leads, id)
	return nil
}

// BulkDelete removes leads by id, skipping ids outside the business scope.
func (r *InMemoryRepository) BulkDelete(ctx context.Context, businessID string, ids []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		if lead, ok := r.leads[id]; ok && lead.BusinessID == businessID {
			delete(r.leads, id)
			deleted++
		}
	}
	return deleted, nil
}

// FindByContact locates a lead by its channel contact.
func (r *InMemoryRepository) FindByContact(ctx context.Context, businessID, channel, contactID string) (*Lead, error) {
	if contactID == "" {
		return nil, ErrLeadNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, lead := range r.leads {
		if lead.BusinessID == businessID && lead.Channel == channel && lead.ContactID == contactID {
			cp := *lead
			return &cp, nil
		}
	}
	return nil, ErrLeadNotFound
}
