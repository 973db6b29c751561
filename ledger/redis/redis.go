// Package redis provides a Redis-backed Ledger for voxassist.
//
// Each user gets an event list (RPUSH of JSON) and a running-totals hash,
// written together by one Lua script so an append and its aggregate update
// cannot be observed half-applied. This makes the ledger safe for
// multi-instance deployments.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/voxassist/voxassist"
)

// Store is a Redis-backed Ledger.
type Store struct {
	client    goredis.Cmdable
	keyPrefix string
}

var _ voxassist.Ledger = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithKeyPrefix sets the Redis key prefix (default "voxassist:ledger:").
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.keyPrefix = prefix }
}

// New creates a new Redis-backed Ledger.
// The client must be a connected *goredis.Client or *goredis.ClusterClient.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client:    client,
		keyPrefix: "voxassist:ledger:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) eventsKey(userID int64) string {
	return s.keyPrefix + "events:" + strconv.FormatInt(userID, 10)
}

func (s *Store) totalsKey(userID int64) string {
	return s.keyPrefix + "totals:" + strconv.FormatInt(userID, 10)
}

// appendScript appends one event and folds it into the totals hash.
// KEYS[1] = events list key
// KEYS[2] = totals hash key
// ARGV[1] = event JSON
// ARGV[2] = cumulative gpt token total carried by the event
// ARGV[3] = audio blocks this event
// ARGV[4] = tts symbols this event
var appendScript = goredis.NewScript(`
redis.call('RPUSH', KEYS[1], ARGV[1])

local tokens = tonumber(ARGV[2])
local current = tonumber(redis.call('HGET', KEYS[2], 'total_gpt_tokens') or '0')
if tokens > current then
	redis.call('HSET', KEYS[2], 'total_gpt_tokens', tokens)
end

local blocks = tonumber(ARGV[3])
if blocks > 0 then
	redis.call('HINCRBY', KEYS[2], 'total_audio_blocks', blocks)
end

local symbols = tonumber(ARGV[4])
if symbols > 0 then
	redis.call('HINCRBY', KEYS[2], 'total_tts_symbols', symbols)
end

return 1
`)

// AppendEvent durably records one usage event.
func (s *Store) AppendEvent(ctx context.Context, event voxassist.UsageEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("voxassist/redis: marshal event: %w", err)
	}

	_, err = appendScript.Run(ctx, s.client,
		[]string{s.eventsKey(event.UserID), s.totalsKey(event.UserID)},
		payload, event.GPTTokensTotal, event.AudioBlocks, event.TTSSymbols,
	).Result()
	if err != nil {
		return fmt.Errorf("voxassist/redis: append: %w", err)
	}
	return nil
}

// Aggregate returns the per-user total for a metric from the totals hash.
func (s *Store) Aggregate(ctx context.Context, userID int64, metric voxassist.Metric) (int64, error) {
	switch metric {
	case voxassist.MetricGPTTokens, voxassist.MetricAudioBlocks, voxassist.MetricTTSSymbols:
	default:
		return 0, fmt.Errorf("voxassist/redis: unknown metric %q", metric)
	}

	val, err := s.client.HGet(ctx, s.totalsKey(userID), string(metric)).Result()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("voxassist/redis: aggregate: %w", err)
	}

	total, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("voxassist/redis: parse total %q: %w", val, err)
	}
	return total, nil
}

// LastMessages returns the user's most recent n messages in chronological
// order.
func (s *Store) LastMessages(ctx context.Context, userID int64, n int) ([]voxassist.Message, error) {
	if n <= 0 {
		return nil, nil
	}

	raw, err := s.client.LRange(ctx, s.eventsKey(userID), int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("voxassist/redis: last messages: %w", err)
	}

	messages := make([]voxassist.Message, 0, len(raw))
	for _, item := range raw {
		var event voxassist.UsageEvent
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			return nil, fmt.Errorf("voxassist/redis: unmarshal event: %w", err)
		}
		messages = append(messages, voxassist.Message{Role: event.Role, Text: event.Text})
	}
	return messages, nil
}
