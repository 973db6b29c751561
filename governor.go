package voxassist

import "context"

// Limits holds the per-user consumption caps the Governor decides against.
type Limits struct {
	MaxGPTTokens      int64
	MaxTTSSymbols     int64
	MaxSTTBlocks      int64
	AudioBlockSeconds int
}

// Governor answers allow/deny for GPT-token and voice-block spend. It is
// pure decision logic over ledger aggregates and the configured limits; it
// keeps no mutable state of its own.
type Governor struct {
	ledger Ledger
	limits Limits
}

// NewGovernor creates a Governor reading aggregates from the given ledger.
func NewGovernor(ledger Ledger, limits Limits) *Governor {
	return &Governor{ledger: ledger, limits: limits}
}

// GPTBudgetOK reports whether the user may spend incomingLen more token
// units. The incoming text length is a conservative admission proxy, not a
// billing figure; the real token count comes back from the completion call.
func (g *Governor) GPTBudgetOK(ctx context.Context, userID int64, incomingLen int) (bool, error) {
	total, err := g.ledger.Aggregate(ctx, userID, MetricGPTTokens)
	if err != nil {
		return false, err
	}
	return total+int64(incomingLen) <= g.limits.MaxGPTTokens, nil
}

// VoiceBudgetOK reports whether the user may spend the audio blocks this
// turn's voice duration costs. The computed block count is returned
// regardless of the outcome so the caller can log and persist it.
func (g *Governor) VoiceBudgetOK(ctx context.Context, userID int64, durationSeconds int) (ok bool, blocks int64, err error) {
	blocks = g.AudioBlocks(durationSeconds)
	total, err := g.ledger.Aggregate(ctx, userID, MetricAudioBlocks)
	if err != nil {
		return false, blocks, err
	}
	return total+blocks <= g.limits.MaxSTTBlocks, blocks, nil
}

// AudioBlocks converts a voice duration to billing blocks, rounding up.
// Zero or negative durations cost nothing.
func (g *Governor) AudioBlocks(durationSeconds int) int64 {
	if durationSeconds <= 0 {
		return 0
	}
	unit := g.limits.AudioBlockSeconds
	return int64((durationSeconds + unit - 1) / unit)
}

// TrimReply hard-truncates text to the TTS symbol cap so both the
// synthesized-audio cost and the persisted symbol count stay bounded.
// Truncation counts runes, not bytes; replies are routinely non-ASCII.
// Trimming an already-short reply is a no-op, and trimming is idempotent.
func (l Limits) TrimReply(text string) string {
	runes := []rune(text)
	if int64(len(runes)) <= l.MaxTTSSymbols {
		return text
	}
	return string(runes[:l.MaxTTSSymbols])
}
