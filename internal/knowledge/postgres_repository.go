package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type knowledgeDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores knowledge entries in Postgres
type PostgresRepository struct {
	db knowledgeDB
}

// NewPostgresRepository creates a repository backed by a pgx pool
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for tests
func NewPostgresRepositoryWithDB(db knowledgeDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const entryColumns = `id, business_id, title, content, keywords, is_active, created_at, updated_at`

// Create inserts a new entry
func (r *PostgresRepository) Create(ctx context.Context, req *CreateEntryRequest) (*Entry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	entry := &Entry{
		BusinessID: req.BusinessID,
		Title:      req.Title,
		Content:    req.Content,
		Keywords:   append([]string(nil), req.Keywords...),
		IsActive:   req.active(),
	}
	query := `
		INSERT INTO knowledge_entries (business_id, title, content, keywords, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query, entry.BusinessID, entry.Title, entry.Content,
		string(encodeKeywords(req.Keywords)), entry.IsActive).
		Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create knowledge entry: %w", err)
	}
	return entry, nil
}

// GetByID retrieves an entry scoped to the business
func (r *PostgresRepository) GetByID(ctx context.Context, businessID, id string) (*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM knowledge_entries WHERE business_id = $1 AND id = $2`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, businessID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("get knowledge entry: %w", err)
	}
	return entry, nil
}

// List returns all entries for a business, newest first.
func (r *PostgresRepository) List(ctx context.Context, businessID string) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM knowledge_entries WHERE business_id = $1 ORDER BY created_at DESC, id ASC`
	return r.queryEntries(ctx, query, businessID)
}

// Recent returns the most recently updated active entries up to limit.
func (r *PostgresRepository) Recent(ctx context.Context, businessID string, limit int) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM knowledge_entries WHERE business_id = $1 AND is_active ORDER BY updated_at DESC, id ASC LIMIT $2`
	return r.queryEntries(ctx, query, businessID, limit)
}

func (r *PostgresRepository) queryEntries(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list knowledge entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan knowledge entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list knowledge entries: %w", err)
	}
	return entries, nil
}

// Update applies a partial update and returns the updated row
func (r *PostgresRepository) Update(ctx context.Context, businessID, id string, req *UpdateEntryRequest) (*Entry, error) {
	set := []string{"updated_at = now()"}
	args := []any{businessID, id}

	if req.Title != nil {
		args = append(args, *req.Title)
		set = append(set, fmt.Sprintf("title = $%d", len(args)))
	}
	if req.Content != nil {
		args = append(args, *req.Content)
		set = append(set, fmt.Sprintf("content = $%d", len(args)))
	}
	if req.Keywords != nil {
		args = append(args, string(encodeKeywords(*req.Keywords)))
		set = append(set, fmt.Sprintf("keywords = $%d", len(args)))
	}
	if req.IsActive != nil {
		args = append(args, *req.IsActive)
		set = append(set, fmt.Sprintf("is_active = $%d", len(args)))
	}

	query := `UPDATE knowledge_entries SET ` + strings.Join(set, ", ") +
		` WHERE business_id = $1 AND id = $2 RETURNING ` + entryColumns

	entry, err := scanEntry(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("update knowledge entry: %w", err)
	}
	return entry, nil
}

// Delete removes an entry
func (r *PostgresRepository) Delete(ctx context.Context, businessID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM knowledge_entries WHERE business_id = $1 AND id = $2`, businessID, id)
	if err != nil {
		return fmt.Errorf("delete knowledge entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var (
		entry   Entry
		rawKeys []byte
	)
	err := row.Scan(&entry.ID, &entry.BusinessID, &entry.Title, &entry.Content,
		&rawKeys, &entry.IsActive, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, err
	}
	entry.Keywords = decodeKeywords(rawKeys)
	return &entry, nil
}
