// Package postgres provides a PostgreSQL-backed Ledger for voxassist.
//
// Events live in one append-only table; aggregates are computed on read.
// This provides durability across restarts and is safe for multi-instance
// deployments.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxassist/voxassist"
)

// Store is a PostgreSQL-backed Ledger.
type Store struct {
	pool        *pgxpool.Pool
	tablePrefix string
}

var _ voxassist.Ledger = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithTablePrefix sets the table name prefix (default "voxassist_").
func WithTablePrefix(prefix string) Option {
	return func(s *Store) { s.tablePrefix = prefix }
}

// New creates a new PostgreSQL-backed Ledger.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:        pool,
		tablePrefix: "voxassist_",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) eventsTable() string { return s.tablePrefix + "events" }

// EnsureSchema creates the required table if it doesn't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			body TEXT NOT NULL,
			role TEXT NOT NULL,
			total_gpt_tokens BIGINT NOT NULL DEFAULT 0,
			tts_symbols BIGINT NOT NULL DEFAULT 0,
			stt_blocks BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS %s_user_idx ON %s (user_id, id);
	`, s.eventsTable(), s.eventsTable(), s.eventsTable())
	_, err := s.pool.Exec(ctx, q)
	if err != nil {
		return fmt.Errorf("voxassist/postgres: ensure schema: %w", err)
	}
	return nil
}

// AppendEvent durably records one usage event.
func (s *Store) AppendEvent(ctx context.Context, event voxassist.UsageEvent) error {
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (user_id, body, role, total_gpt_tokens, tts_symbols, stt_blocks, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`, s.eventsTable()),
		event.UserID, event.Text, string(event.Role),
		event.GPTTokensTotal, event.TTSSymbols, event.AudioBlocks, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("voxassist/postgres: append: %w", err)
	}
	return nil
}

// Aggregate returns the per-user total for a metric.
func (s *Store) Aggregate(ctx context.Context, userID int64, metric voxassist.Metric) (int64, error) {
	var expr string
	switch metric {
	case voxassist.MetricGPTTokens:
		// Cumulative running total carried on bot events; monotonic, so
		// MAX is the current figure.
		expr = "COALESCE(MAX(total_gpt_tokens), 0)"
	case voxassist.MetricAudioBlocks:
		expr = "COALESCE(SUM(stt_blocks), 0)"
	case voxassist.MetricTTSSymbols:
		expr = "COALESCE(SUM(tts_symbols), 0)"
	default:
		return 0, fmt.Errorf("voxassist/postgres: unknown metric %q", metric)
	}

	var total int64
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1`, expr, s.eventsTable()),
		userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("voxassist/postgres: aggregate: %w", err)
	}
	return total, nil
}

// LastMessages returns the user's most recent n messages in chronological
// order.
func (s *Store) LastMessages(ctx context.Context, userID int64, n int) ([]voxassist.Message, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT role, body FROM %s WHERE user_id = $1 ORDER BY id DESC LIMIT $2`,
			s.eventsTable()),
		userID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("voxassist/postgres: last messages: %w", err)
	}
	defer rows.Close()

	var reversed []voxassist.Message
	for rows.Next() {
		var role, body string
		if err := rows.Scan(&role, &body); err != nil {
			return nil, fmt.Errorf("voxassist/postgres: scan message: %w", err)
		}
		reversed = append(reversed, voxassist.Message{Role: voxassist.Role(role), Text: body})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("voxassist/postgres: last messages: %w", err)
	}

	// Newest-first from the query; flip to chronological order.
	messages := make([]voxassist.Message, len(reversed))
	for i, m := range reversed {
		messages[len(reversed)-1-i] = m
	}
	return messages, nil
}
