//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxassist/voxassist"
	ledgerpg "github.com/voxassist/voxassist/ledger/postgres"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "postgres://localhost:5432/voxassist_test?sslmode=disable"
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("pgxpool: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		t.Fatalf("postgres not available: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

func newTestStore(t *testing.T, pool *pgxpool.Pool) *ledgerpg.Store {
	t.Helper()
	// Use a unique prefix per test to avoid collisions.
	prefix := fmt.Sprintf("test_%s_", t.Name())
	s := ledgerpg.New(pool, ledgerpg.WithTablePrefix(prefix))

	ctx := context.Background()
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	t.Cleanup(func() {
		pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %sevents", prefix))
	})
	return s
}

func TestAppendAndAggregate(t *testing.T) {
	pool := newTestPool(t)
	store := newTestStore(t, pool)
	ctx := context.Background()

	now := time.Now()
	events := []voxassist.UsageEvent{
		{UserID: 1, Role: voxassist.RoleUser, Text: "hi", AudioBlocks: 2, CreatedAt: now},
		{UserID: 1, Role: voxassist.RoleBot, Text: "hello", GPTTokensTotal: 30, TTSSymbols: 5, CreatedAt: now},
		{UserID: 1, Role: voxassist.RoleUser, Text: "more", CreatedAt: now},
		{UserID: 1, Role: voxassist.RoleBot, Text: "sure", GPTTokensTotal: 75, TTSSymbols: 4, CreatedAt: now},
		{UserID: 2, Role: voxassist.RoleBot, Text: "other", GPTTokensTotal: 500, CreatedAt: now},
	}
	for _, e := range events {
		if err := store.AppendEvent(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	tokens, err := store.Aggregate(ctx, 1, voxassist.MetricGPTTokens)
	if err != nil {
		t.Fatalf("aggregate tokens: %v", err)
	}
	// Running total, not a sum of the carried values.
	if tokens != 75 {
		t.Fatalf("expected tokens=75, got %d", tokens)
	}

	blocks, err := store.Aggregate(ctx, 1, voxassist.MetricAudioBlocks)
	if err != nil {
		t.Fatalf("aggregate blocks: %v", err)
	}
	if blocks != 2 {
		t.Fatalf("expected blocks=2, got %d", blocks)
	}

	symbols, err := store.Aggregate(ctx, 1, voxassist.MetricTTSSymbols)
	if err != nil {
		t.Fatalf("aggregate symbols: %v", err)
	}
	if symbols != 9 {
		t.Fatalf("expected symbols=9, got %d", symbols)
	}

	// Users are isolated.
	other, err := store.Aggregate(ctx, 2, voxassist.MetricGPTTokens)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if other != 500 {
		t.Fatalf("expected tokens=500 for user 2, got %d", other)
	}
}

func TestAggregateUnknownUser(t *testing.T) {
	pool := newTestPool(t)
	store := newTestStore(t, pool)

	total, err := store.Aggregate(context.Background(), 404, voxassist.MetricGPTTokens)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected 0 for unknown user, got %d", total)
	}
}

func TestLastMessages(t *testing.T) {
	pool := newTestPool(t)
	store := newTestStore(t, pool)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		role := voxassist.RoleUser
		if i%2 == 0 {
			role = voxassist.RoleBot
		}
		err := store.AppendEvent(ctx, voxassist.UsageEvent{
			UserID:    1,
			Role:      role,
			Text:      fmt.Sprintf("m%d", i),
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := store.LastMessages(ctx, 1, 3)
	if err != nil {
		t.Fatalf("last messages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	if got[0].Text != "m3" || got[2].Text != "m5" {
		t.Fatalf("wrong window or order: %+v", got)
	}
	if got[1].Role != voxassist.RoleBot {
		t.Fatalf("role lost in round trip: %+v", got[1])
	}

	none, err := store.LastMessages(ctx, 9, 3)
	if err != nil {
		t.Fatalf("last messages: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no messages for unknown user, got %d", len(none))
	}
}
