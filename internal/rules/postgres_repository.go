package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// rulesDB defines the database interface needed by PostgresRepository
type rulesDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores rules in the relational database.
type PostgresRepository struct {
	db rulesDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("rules: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db rulesDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const ruleColumns = `id, business_id, intent, name, description, keywords, response, priority, is_active, trigger_count, last_triggered_at, created_at, updated_at`

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateRuleRequest) (*Rule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	priority := DefaultPriority
	if req.Priority != nil {
		priority = *req.Priority
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	query := `
		INSERT INTO ai_rules (id, business_id, intent, name, description, keywords, response, priority, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		req.BusinessID,
		strings.ToLower(strings.TrimSpace(req.Intent)),
		strings.TrimSpace(req.Name),
		strings.TrimSpace(req.Description),
		string(encodeKeywords(req.Keywords)),
		strings.TrimSpace(req.Response),
		priority,
		isActive,
	).Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("rules: insert failed: %w", err)
	}

	return &Rule{
		ID:          id.String(),
		BusinessID:  req.BusinessID,
		Intent:      strings.ToLower(strings.TrimSpace(req.Intent)),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Keywords:    append([]string(nil), req.Keywords...),
		Response:    strings.TrimSpace(req.Response),
		Priority:    priority,
		IsActive:    isActive,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// GetByID fetches a rule scoped to the business.
func (r *PostgresRepository) GetByID(ctx context.Context, businessID, id string) (*Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM ai_rules WHERE id = $1 AND business_id = $2`
	rule, err := scanRule(r.db.QueryRow(ctx, query, id, businessID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("rules: select failed: %w", err)
	}
	return rule, nil
}

// List returns a page of rules ordered by priority ascending, id ascending.
func (r *PostgresRepository) List(ctx context.Context, businessID string, filter ListRulesFilter) ([]*Rule, int, error) {
	where := `WHERE business_id = $1`
	args := []any{businessID}
	argIdx := 2

	if filter.Intent != "" {
		where += fmt.Sprintf(" AND intent = $%d", argIdx)
		args = append(args, filter.Intent)
		argIdx++
	}
	if filter.IsActive != nil {
		where += fmt.Sprintf(" AND is_active = $%d", argIdx)
		args = append(args, *filter.IsActive)
		argIdx++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM ai_rules ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("rules: count failed: %w", err)
	}

	query := `SELECT ` + ruleColumns + ` FROM ai_rules ` + where + ` ORDER BY priority ASC, id ASC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("rules: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("rules: scan failed: %w", err)
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rules: rows failed: %w", err)
	}
	return out, total, nil
}

// Update applies a partial update and returns the updated row.
func (r *PostgresRepository) Update(ctx context.Context, businessID, id string, req *UpdateRuleRequest) (*Rule, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id, businessID}
	argIdx := 3

	addSet := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if req.Intent != nil {
		addSet("intent", strings.ToLower(strings.TrimSpace(*req.Intent)))
	}
	if req.Name != nil {
		addSet("name", strings.TrimSpace(*req.Name))
	}
	if req.Description != nil {
		addSet("description", strings.TrimSpace(*req.Description))
	}
	if req.Keywords != nil {
		addSet("keywords", string(encodeKeywords(*req.Keywords)))
	}
	if req.Response != nil {
		addSet("response", strings.TrimSpace(*req.Response))
	}
	if req.Priority != nil {
		addSet("priority", *req.Priority)
	}
	if req.IsActive != nil {
		addSet("is_active", *req.IsActive)
	}

	query := `UPDATE ai_rules SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 AND business_id = $2 RETURNING ` + ruleColumns
	rule, err := scanRule(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("rules: update failed: %w", err)
	}
	return rule, nil
}

// Delete removes a rule.
func (r *PostgresRepository) Delete(ctx context.Context, businessID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM ai_rules WHERE id = $1 AND business_id = $2`, id, businessID)
	if err != nil {
		return fmt.Errorf("rules: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// BulkDelete removes rules by id within the business scope.
func (r *PostgresRepository) BulkDelete(ctx context.Context, businessID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM ai_rules WHERE business_id = $1 AND id = ANY($2)`, businessID, ids)
	if err != nil {
		return 0, fmt.Errorf("rules: bulk delete failed: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListActive returns the active rules for matching, in match order.
func (r *PostgresRepository) ListActive(ctx context.Context, businessID string) ([]*Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM ai_rules WHERE business_id = $1 AND is_active ORDER BY priority ASC, id ASC`
	rows, err := r.db.Query(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("rules: list active failed: %w", err)
	}
	defer rows.Close()

	var out []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("rules: scan failed: %w", err)
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rules: rows failed: %w", err)
	}
	return out, nil
}

// IncrementTrigger bumps trigger stats atomically at the data store so
// concurrent matches never lose updates.
func (r *PostgresRepository) IncrementTrigger(ctx context.Context, id string) error {
	query := `UPDATE ai_rules SET trigger_count = trigger_count + 1, last_triggered_at = now() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("rules: trigger increment failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func scanRule(row pgx.Row) (*Rule, error) {
	var rule Rule
	var keywordsRaw string
	if err := row.Scan(
		&rule.ID,
		&rule.BusinessID,
		&rule.Intent,
		&rule.Name,
		&rule.Description,
		&keywordsRaw,
		&rule.Response,
		&rule.Priority,
		&rule.IsActive,
		&rule.TriggerCount,
		&rule.LastTriggeredAt,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rule.Keywords = decodeKeywords([]byte(keywordsRaw))
	return &rule, nil
}
