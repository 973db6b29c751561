package memory_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxassist/voxassist"
	"github.com/voxassist/voxassist/ledger/memory"
)

func TestAggregate(t *testing.T) {
	ctx := context.Background()
	l := memory.New()

	events := []voxassist.UsageEvent{
		{UserID: 1, Role: voxassist.RoleUser, Text: "hi", AudioBlocks: 2},
		{UserID: 1, Role: voxassist.RoleBot, Text: "hello", GPTTokensTotal: 30, TTSSymbols: 5},
		{UserID: 1, Role: voxassist.RoleUser, Text: "more"},
		{UserID: 1, Role: voxassist.RoleBot, Text: "sure", GPTTokensTotal: 75, TTSSymbols: 4},
		{UserID: 2, Role: voxassist.RoleBot, Text: "other user", GPTTokensTotal: 999},
	}
	for _, e := range events {
		require.NoError(t, l.AppendEvent(ctx, e))
	}

	t.Run("tokens are a running total, not a sum", func(t *testing.T) {
		total, err := l.Aggregate(ctx, 1, voxassist.MetricGPTTokens)
		require.NoError(t, err)
		assert.Equal(t, int64(75), total)
	})

	t.Run("blocks and symbols sum per event", func(t *testing.T) {
		blocks, err := l.Aggregate(ctx, 1, voxassist.MetricAudioBlocks)
		require.NoError(t, err)
		assert.Equal(t, int64(2), blocks)

		symbols, err := l.Aggregate(ctx, 1, voxassist.MetricTTSSymbols)
		require.NoError(t, err)
		assert.Equal(t, int64(9), symbols)
	})

	t.Run("users are isolated", func(t *testing.T) {
		total, err := l.Aggregate(ctx, 2, voxassist.MetricGPTTokens)
		require.NoError(t, err)
		assert.Equal(t, int64(999), total)
	})

	t.Run("unknown user aggregates to zero", func(t *testing.T) {
		total, err := l.Aggregate(ctx, 42, voxassist.MetricGPTTokens)
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("unknown metric errors", func(t *testing.T) {
		_, err := l.Aggregate(ctx, 1, voxassist.Metric("total_moon_phases"))
		assert.Error(t, err)
	})
}

func TestLastMessages(t *testing.T) {
	ctx := context.Background()
	l := memory.New()

	for i := 1; i <= 8; i++ {
		role := voxassist.RoleUser
		if i%2 == 0 {
			role = voxassist.RoleBot
		}
		require.NoError(t, l.AppendEvent(ctx, voxassist.UsageEvent{
			UserID: 1,
			Role:   role,
			Text:   fmt.Sprintf("m%d", i),
		}))
	}

	t.Run("returns the tail in chronological order", func(t *testing.T) {
		got, err := l.LastMessages(ctx, 1, 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "m6", got[0].Text)
		assert.Equal(t, "m7", got[1].Text)
		assert.Equal(t, "m8", got[2].Text)
		assert.Equal(t, voxassist.RoleBot, got[0].Role)
	})

	t.Run("asking for more than exists returns everything", func(t *testing.T) {
		got, err := l.LastMessages(ctx, 1, 100)
		require.NoError(t, err)
		assert.Len(t, got, 8)
		assert.Equal(t, "m1", got[0].Text)
	})

	t.Run("zero window returns nothing", func(t *testing.T) {
		got, err := l.LastMessages(ctx, 1, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unknown user returns nothing", func(t *testing.T) {
		got, err := l.LastMessages(ctx, 9, 5)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	l := memory.New()

	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 25; i++ {
				_ = l.AppendEvent(ctx, voxassist.UsageEvent{
					UserID:      int64(g % 2),
					Role:        voxassist.RoleUser,
					Text:        "x",
					AudioBlocks: 1,
				})
			}
		}(g)
	}
	for g := 0; g < 8; g++ {
		<-done
	}

	assert.Equal(t, 100, l.EventCount(0))
	assert.Equal(t, 100, l.EventCount(1))

	blocks, err := l.Aggregate(ctx, 0, voxassist.MetricAudioBlocks)
	require.NoError(t, err)
	assert.Equal(t, int64(100), blocks)
}
