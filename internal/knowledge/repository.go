package knowledge

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for knowledge storage
type Repository interface {
	Create(ctx context.Context, req *CreateEntryRequest) (*Entry, error)
	GetByID(ctx context.Context, businessID, id string) (*Entry, error)
	List(ctx context.Context, businessID string) ([]*Entry, error)
	Update(ctx context.Context, businessID, id string, req *UpdateEntryRequest) (*Entry, error)
	Delete(ctx context.Context, businessID, id string) error

	// Recent returns the most recently updated active entries, the candidate
	// pool for keyword retrieval.
	Recent(ctx context.Context, businessID string, limit int) ([]*Entry, error)
}

// InMemoryRepository is an in-memory implementation of Repository
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{entries: make(map[string]*Entry)}
}

// Create creates a new entry
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateEntryRequest) (*Entry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := &Entry{
		ID:         uuid.New().String(),
		BusinessID: req.BusinessID,
		Title:      req.Title,
		Content:    req.Content,
		Keywords:   append([]string(nil), req.Keywords...),
		IsActive:   req.active(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	r.mu.Lock()
	r.entries[entry.ID] = entry
	r.mu.Unlock()

	return copyEntry(entry), nil
}

// GetByID retrieves an entry scoped to the business
func (r *InMemoryRepository) GetByID(ctx context.Context, businessID, id string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok || entry.BusinessID != businessID {
		return nil, ErrEntryNotFound
	}
	return copyEntry(entry), nil
}

// List returns all entries for a business, newest first.
func (r *InMemoryRepository) List(ctx context.Context, businessID string) ([]*Entry, error) {
	r.mu.RLock()
	var out []*Entry
	for _, entry := range r.entries {
		if entry.BusinessID == businessID {
			out = append(out, copyEntry(entry))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Update applies a partial update to an entry
func (r *InMemoryRepository) Update(ctx context.Context, businessID, id string, req *UpdateEntryRequest) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok || entry.BusinessID != businessID {
		return nil, ErrEntryNotFound
	}
	if req.Title != nil {
		entry.Title = *req.Title
	}
	if req.Content != nil {
		entry.Content = *req.Content
	}
	if req.Keywords != nil {
		entry.Keywords = append([]string(nil), (*req.Keywords)...)
	}
	if req.IsActive != nil {
		entry.IsActive = *req.IsActive
	}
	entry.UpdatedAt = time.Now().UTC()

	return copyEntry(entry), nil
}

// Delete removes an entry
func (r *InMemoryRepository) Delete(ctx context.Context, businessID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok || entry.BusinessID != businessID {
		return ErrEntryNotFound
	}
	delete(r.entries, id)
	return nil
}

// Recent returns the most recently updated active entries up to limit.
func (r *InMemoryRepository) Recent(ctx context.Context, businessID string, limit int) ([]*Entry, error) {
	r.mu.RLock()
	var out []*Entry
	for _, entry := range r.entries {
		if entry.BusinessID == businessID && entry.IsActive {
			out = append(out, copyEntry(entry))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyEntry(entry *Entry) *Entry {
	cp := *entry
	cp.Keywords = append([]string(nil), entry.Keywords...)
	return &cp
}
