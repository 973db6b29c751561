package voxassist

import "context"

// Ledger is the append-only per-user usage record consumed by the core.
// Storage format is the implementation's concern; see ledger/memory,
// ledger/redis and ledger/postgres.
type Ledger interface {
	// AppendEvent durably records one usage event. Events are never
	// overwritten or deleted.
	AppendEvent(ctx context.Context, event UsageEvent) error

	// Aggregate returns the per-user total for a metric across all of the
	// user's events. MetricGPTTokens is the highest cumulative total seen;
	// MetricAudioBlocks and MetricTTSSymbols are sums of per-event counts.
	Aggregate(ctx context.Context, userID int64, metric Metric) (int64, error)

	// LastMessages returns the user's most recent n messages in
	// chronological order (oldest of the window first). Returns fewer than
	// n if history is shorter. The read is idempotent and keeps no cursor.
	LastMessages(ctx context.Context, userID int64, n int) ([]Message, error)
}
