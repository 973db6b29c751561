// Package mock provides in-memory collaborator doubles for testing.
package mock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxassist/voxassist"
)

// Completer is a mock completion model.
type Completer struct {
	reply        string
	tokens       int64
	staticErr    error
	latency      time.Duration
	completeFunc func([]voxassist.Message) (voxassist.Completion, error)

	callCount atomic.Int64
	mu        sync.Mutex
	lastCtx   []voxassist.Message
}

var _ voxassist.Completer = (*Completer)(nil)

// CompleterOption configures a mock Completer.
type CompleterOption func(*Completer)

// WithReply sets the reply text and token spend the mock reports.
func WithReply(text string, tokens int64) CompleterOption {
	return func(c *Completer) {
		c.reply = text
		c.tokens = tokens
	}
}

// WithError makes the completer always return this error.
func WithError(err error) CompleterOption {
	return func(c *Completer) { c.staticErr = err }
}

// WithLatency adds simulated latency to each call.
func WithLatency(d time.Duration) CompleterOption {
	return func(c *Completer) { c.latency = d }
}

// WithCompleteFunc sets a custom response function.
func WithCompleteFunc(fn func([]voxassist.Message) (voxassist.Completion, error)) CompleterOption {
	return func(c *Completer) { c.completeFunc = fn }
}

// NewCompleter creates a mock completer with the given options.
func NewCompleter(opts ...CompleterOption) *Completer {
	c := &Completer{
		reply:  "Hello from the mock model",
		tokens: 30,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Completer) Complete(ctx context.Context, messages []voxassist.Message) (voxassist.Completion, error) {
	if c.latency > 0 {
		select {
		case <-time.After(c.latency):
		case <-ctx.Done():
			return voxassist.Completion{}, ctx.Err()
		}
	}

	c.callCount.Add(1)
	c.mu.Lock()
	c.lastCtx = append([]voxassist.Message(nil), messages...)
	c.mu.Unlock()

	if c.staticErr != nil {
		return voxassist.Completion{}, c.staticErr
	}
	if c.completeFunc != nil {
		return c.completeFunc(messages)
	}
	return voxassist.Completion{Text: c.reply, TokensUsed: c.tokens}, nil
}

// Calls returns how many times Complete was invoked.
func (c *Completer) Calls() int64 { return c.callCount.Load() }

// LastContext returns the context passed to the most recent call.
func (c *Completer) LastContext() []voxassist.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]voxassist.Message(nil), c.lastCtx...)
}

// Synthesizer is a mock text-to-speech service.
type Synthesizer struct {
	audio     []byte
	staticErr error
	callCount atomic.Int64
}

var _ voxassist.Synthesizer = (*Synthesizer)(nil)

// SynthesizerOption configures a mock Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithAudio sets the audio bytes the mock returns.
func WithAudio(audio []byte) SynthesizerOption {
	return func(s *Synthesizer) { s.audio = audio }
}

// WithSynthesisError makes the synthesizer always return this error.
func WithSynthesisError(err error) SynthesizerOption {
	return func(s *Synthesizer) { s.staticErr = err }
}

// NewSynthesizer creates a mock synthesizer with the given options.
func NewSynthesizer(opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{audio: []byte("mock-audio")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synthesizer) Synthesize(_ context.Context, _ string) ([]byte, error) {
	s.callCount.Add(1)
	if s.staticErr != nil {
		return nil, s.staticErr
	}
	return s.audio, nil
}

// Calls returns how many times Synthesize was invoked.
func (s *Synthesizer) Calls() int64 { return s.callCount.Load() }

// Transcriber is a mock speech-to-text service.
type Transcriber struct {
	text      string
	staticErr error
}

var _ voxassist.Transcriber = (*Transcriber)(nil)

// TranscriberOption configures a mock Transcriber.
type TranscriberOption func(*Transcriber)

// WithTranscript sets the text the mock returns.
func WithTranscript(text string) TranscriberOption {
	return func(t *Transcriber) { t.text = text }
}

// WithTranscriptionError makes the transcriber always return this error.
func WithTranscriptionError(err error) TranscriberOption {
	return func(t *Transcriber) { t.staticErr = err }
}

// NewTranscriber creates a mock transcriber with the given options.
func NewTranscriber(opts ...TranscriberOption) *Transcriber {
	t := &Transcriber{text: "mock transcript"}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transcriber) Transcribe(_ context.Context, _ []byte) (string, error) {
	if t.staticErr != nil {
		return "", t.staticErr
	}
	return t.text, nil
}

// SentText is one recorded text delivery.
type SentText struct {
	UserID int64
	Text   string
}

// SentVoice is one recorded voice delivery.
type SentVoice struct {
	UserID int64
	Audio  []byte
}

// Transport records every delivery for later assertions.
type Transport struct {
	mu     sync.Mutex
	texts  []SentText
	voices []SentVoice
}

var _ voxassist.Transport = (*Transport)(nil)

// NewTransport creates an empty recording transport.
func NewTransport() *Transport {
	return &Transport{}
}

func (t *Transport) SendText(_ context.Context, userID int64, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.texts = append(t.texts, SentText{UserID: userID, Text: text})
	return nil
}

func (t *Transport) SendVoice(_ context.Context, userID int64, audio []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.voices = append(t.voices, SentVoice{UserID: userID, Audio: audio})
	return nil
}

// Texts returns a copy of the recorded text deliveries.
func (t *Transport) Texts() []SentText {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SentText(nil), t.texts...)
}

// Voices returns a copy of the recorded voice deliveries.
func (t *Transport) Voices() []SentVoice {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SentVoice(nil), t.voices...)
}

// Sends returns the total number of deliveries of either kind.
func (t *Transport) Sends() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.texts) + len(t.voices)
}
