package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// leadsDB is the subset of pgxpool.Pool the repository needs. Tests satisfy
// it with pgxmock.
type leadsDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores leads in Postgres
type PostgresRepository struct {
	db leadsDB
}

// NewPostgresRepository creates a repository backed by a pgx pool
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for tests
func NewPostgresRepositoryWithDB(db leadsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const leadColumns = `id, business_id, channel, contact_id, name, email, phone, status, source_intent, notes, created_at, updated_at`

// Create inserts a new lead
func (r *PostgresRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lead := &Lead{
		BusinessID:   req.BusinessID,
		Channel:      strings.ToLower(strings.TrimSpace(req.Channel)),
		ContactID:    req.ContactID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Status:       StatusNew,
		SourceIntent: req.SourceIntent,
		Notes:        req.Notes,
	}

	query := `
		INSERT INTO leads (business_id, channel, contact_id, name, email, phone, status, source_intent, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		lead.BusinessID, lead.Channel, lead.ContactID, lead.Name, lead.Email,
		lead.Phone, lead.Status, lead.SourceIntent, lead.Notes,
	).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	return lead, nil
}

// GetByID retrieves a lead scoped to the business
func (r *PostgresRepository) GetByID(ctx context.Context, businessID, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE business_id = $1 AND id = $2`

	lead, err := scanLead(r.db.QueryRow(ctx, query, businessID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// List returns leads for a business matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, businessID string, filter ListLeadsFilter) ([]*Lead, int, error) {
	where := []string{"business_id = $1"}
	args := []any{businessID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Channel != "" {
		args = append(args, filter.Channel)
		where = append(where, fmt.Sprintf("channel = $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM leads WHERE ` + whereClause
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	query := `SELECT ` + leadColumns + ` FROM leads WHERE ` + whereClause + ` ORDER BY created_at DESC, id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	return leads, total, nil
}

// Update applies a partial update and returns the updated row
func (r *PostgresRepository) Update(ctx context.Context, businessID, id string, req *UpdateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	set := []string{"updated_at = now()"}
	args := []any{businessID, id}

	addSet := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if req.Name != nil {
		addSet("name", *req.Name)
	}
	if req.Email != nil {
		addSet("email", *req.Email)
	}
	if req.Phone != nil {
		addSet("phone", *req.Phone)
	}
	if req.Status != nil {
		addSet("status", *req.Status)
	}
	if req.SourceIntent != nil {
		addSet("source_intent", *req.SourceIntent)
	}
	if req.Notes != nil {
		addSet("notes", *req.Notes)
	}

	query := `UPDATE leads SET ` + strings.Join(set, ", ") +
		` WHERE business_id = $1 AND id = $2 RETURNING ` + leadColumns

	lead, err := scanLead(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("update lead: %w", err)
	}
	return lead, nil
}

// Delete removes a lead
func (r *PostgresRepository) Delete(ctx context.Context, businessID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM leads WHERE business_id = $1 AND id = $2`, businessID, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// BulkDelete removes leads by id within the business scope
func (r *PostgresRepository) BulkDelete(ctx context.Context, businessID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM leads WHERE business_id = $1 AND id = ANY($2)`, businessID, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete leads: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// FindByContact locates a lead by its channel contact.
func (r *PostgresRepository) FindByContact(ctx context.Context, businessID, channel, contactID string) (*Lead, error) {
	if contactID == "" {
		return nil, ErrLeadNotFound
	}

	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE business_id = $1 AND channel = $2 AND contact_id = $3
		ORDER BY created_at DESC LIMIT 1`

	lead, err := scanLead(r.db.QueryRow(ctx, query, businessID, channel, contactID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("find lead by contact: %w", err)
	}
	return lead, nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.BusinessID, &lead.Channel, &lead.ContactID, &lead.Name,
		&lead.Email, &lead.Phone, &lead.Status, &lead.SourceIntent, &lead.Notes,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}
