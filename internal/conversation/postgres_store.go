package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/convodesk/platform/internal/leads"
	"github.com/convodesk/platform/internal/rules"
)

type conversationDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore persists conversation rows in Postgres
type PostgresStore struct {
	db conversationDB
}

// NewPostgresStore creates a store backed by a pgx pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

// NewPostgresStoreWithDB allows injecting a mock database for tests
func NewPostgresStoreWithDB(db conversationDB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append stores one exchange
func (s *PostgresStore) Append(ctx context.Context, msg *Message) (*Message, error) {
	query := `
		INSERT INTO conversations (business_id, channel, contact_id, user_message, bot_response, intent, rule_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING id, created_at`

	stored := *msg
	err := s.db.QueryRow(ctx, query,
		msg.BusinessID, msg.Channel, msg.ContactID, msg.UserMessage,
		msg.BotResponse, msg.Intent, msg.RuleID,
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("append conversation: %w", err)
	}
	return &stored, nil
}

// Transcript returns a contact's exchanges, oldest first.
func (s *PostgresStore) Transcript(ctx context.Context, businessID, channel, contactID string, limit int) ([]*Message, error) {
	query := `
		SELECT id, business_id, channel, contact_id, user_message, bot_response, intent, COALESCE(rule_id::text, ''), created_at
		FROM (
			SELECT * FROM conversations
			WHERE business_id = $1 AND channel = $2 AND contact_id = $3
			ORDER BY created_at DESC
			LIMIT $4
		) recent
		ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, businessID, channel, contactID, limit)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(
			&msg.ID, &msg.BusinessID, &msg.Channel, &msg.ContactID,
			&msg.UserMessage, &msg.BotResponse, &msg.Intent, &msg.RuleID, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	return out, nil
}

// ContactSignals aggregates scoring inputs with a single query.
func (s *PostgresStore) ContactSignals(ctx context.Context, businessID, channel, contactID string) (leads.Signals, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE intent = $4),
		       COALESCE(MAX(created_at), 'epoch'::timestamptz)
		FROM conversations
		WHERE business_id = $1 AND channel = $2 AND contact_id = $3`

	var signals leads.Signals
	var last time.Time
	err := s.db.QueryRow(ctx, query, businessID, channel, contactID, rules.FallbackIntent).
		Scan(&signals.MessageCount, &signals.FallbackCount, &last)
	if err != nil {
		return leads.Signals{}, fmt.Errorf("aggregate signals: %w", err)
	}
	if last.Unix() > 0 {
		signals.LastActivity = last
	}
	return signals, nil
}
