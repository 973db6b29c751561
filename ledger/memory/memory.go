// Package memory provides an in-memory Ledger for tests and
// single-process deployments. State does not survive a restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/voxassist/voxassist"
)

// Ledger is an in-memory append-only usage ledger.
type Ledger struct {
	mu     sync.RWMutex
	events map[int64][]voxassist.UsageEvent
}

var _ voxassist.Ledger = (*Ledger)(nil)

// New creates an empty in-memory ledger.
func New() *Ledger {
	return &Ledger{events: make(map[int64][]voxassist.UsageEvent)}
}

// AppendEvent records one usage event.
func (l *Ledger) AppendEvent(_ context.Context, event voxassist.UsageEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events[event.UserID] = append(l.events[event.UserID], event)
	return nil
}

// Aggregate returns the per-user total for a metric.
func (l *Ledger) Aggregate(_ context.Context, userID int64, metric voxassist.Metric) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total int64
	for _, e := range l.events[userID] {
		switch metric {
		case voxassist.MetricGPTTokens:
			// Cumulative running total; the highest value wins.
			if e.GPTTokensTotal > total {
				total = e.GPTTokensTotal
			}
		case voxassist.MetricAudioBlocks:
			total += e.AudioBlocks
		case voxassist.MetricTTSSymbols:
			total += e.TTSSymbols
		default:
			return 0, fmt.Errorf("voxassist/memory: unknown metric %q", metric)
		}
	}
	return total, nil
}

// LastMessages returns the user's most recent n messages in chronological
// order.
func (l *Ledger) LastMessages(_ context.Context, userID int64, n int) ([]voxassist.Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	events := l.events[userID]
	if n > len(events) {
		n = len(events)
	}
	if n <= 0 {
		return nil, nil
	}

	messages := make([]voxassist.Message, 0, n)
	for _, e := range events[len(events)-n:] {
		messages = append(messages, voxassist.Message{Role: e.Role, Text: e.Text})
	}
	return messages, nil
}

// EventCount returns the number of events recorded for a user.
func (l *Ledger) EventCount(userID int64) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events[userID])
}
