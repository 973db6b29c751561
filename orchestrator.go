package voxassist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Assistant coordinates one user turn: session touch, quota checks, the
// completion call, optional speech synthesis, ledger writes and reply
// dispatch. Turns for different users may run concurrently; the session
// registry mutex is the only shared lock and is never held across a
// network call.
type Assistant struct {
	cfg       Config
	ledger    Ledger
	sessions  *SessionRegistry
	governor  *Governor
	completer Completer
	synth     Synthesizer
	stt       Transcriber
	transport Transport
	meter     Meter
	now       func() time.Time
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithSynthesizer sets the text-to-speech collaborator. Without one,
// voice turns fall back to text replies.
func WithSynthesizer(s Synthesizer) Option {
	return func(a *Assistant) { a.synth = s }
}

// WithTranscriber sets the speech-to-text collaborator used by VoiceTurn.
func WithTranscriber(t Transcriber) Option {
	return func(a *Assistant) { a.stt = t }
}

// WithMeter sets the meter.
func WithMeter(m Meter) Option {
	return func(a *Assistant) { a.meter = m }
}

// WithClock injects the clock used for session bookkeeping and event
// timestamps. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) { a.now = now }
}

// WithSessionRegistry replaces the registry built from the config.
func WithSessionRegistry(r *SessionRegistry) Option {
	return func(a *Assistant) { a.sessions = r }
}

// NewAssistant creates an Assistant with the given config and
// collaborators. A NoopMeter and a real clock are used unless overridden
// via options.
func NewAssistant(cfg Config, ledger Ledger, completer Completer, transport Transport, opts ...Option) (*Assistant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, fmt.Errorf("voxassist: a ledger is required")
	}
	if completer == nil {
		return nil, fmt.Errorf("voxassist: a completer is required")
	}
	if transport == nil {
		return nil, fmt.Errorf("voxassist: a transport is required")
	}

	a := &Assistant{
		cfg:       cfg,
		ledger:    ledger,
		completer: completer,
		transport: transport,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	// Apply defaults after options.
	if a.meter == nil {
		a.meter = noopMeter{}
	}
	if a.sessions == nil {
		a.sessions = NewSessionRegistry(cfg.MaxUsers, cfg.InactivityTimeout(), WithSessionClock(a.now))
	}
	a.governor = NewGovernor(ledger, cfg.Limits())

	return a, nil
}

// Sessions returns the session registry.
func (a *Assistant) Sessions() *SessionRegistry { return a.sessions }

// Turn runs one complete message-in, reply-out cycle. Every path delivers
// exactly one reply through the transport; the returned error classifies
// denials (IsDenied) and internal failures.
func (a *Assistant) Turn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	start := a.now()
	res := TurnResult{TurnID: uuid.New().String(), State: StateAdmitted}

	// Admission: only a user without an active session counts against the
	// concurrency cap; an active user refreshing their own session is
	// always let through.
	if !a.sessions.IsActive(req.UserID) && !a.sessions.UnderCapacity() {
		return a.deny(ctx, req, res, start, a.cfg.Replies.Busy, ErrSessionLimit)
	}
	a.sessions.Touch(req.UserID)

	a.meter.OnTurn(TurnEvent{
		TurnID:       res.TurnID,
		UserID:       req.UserID,
		Voice:        req.Voice(),
		TextLen:      len([]rune(req.Text)),
		VoiceSeconds: req.VoiceSeconds,
	})

	// Sliding context window: last N ledger messages plus the current
	// input. Transient; never persisted as such.
	history, err := a.ledger.LastMessages(ctx, req.UserID, a.cfg.ContextWindow)
	if err != nil {
		return a.fail(ctx, req, res, start, fmt.Errorf("%w: read context: %v", ErrLedgerUnavailable, err))
	}
	messages := append(history, Message{Role: RoleUser, Text: req.Text})
	res.State = StateContextBuilt

	// Token budget pre-check with the incoming text length as proxy. The
	// real spend is known only after the completion call.
	ok, err := a.governor.GPTBudgetOK(ctx, req.UserID, len([]rune(req.Text)))
	if err != nil {
		return a.fail(ctx, req, res, start, fmt.Errorf("%w: token aggregate: %v", ErrLedgerUnavailable, err))
	}
	if !ok {
		return a.deny(ctx, req, res, start, a.cfg.Replies.TokensDenied, ErrTokenBudgetExceeded)
	}
	res.State = StateTokenChecked

	voiceChecked := false
	if a.cfg.PrecheckVoice {
		ok, blocks, verr := a.governor.VoiceBudgetOK(ctx, req.UserID, req.VoiceSeconds)
		if verr != nil {
			return a.fail(ctx, req, res, start, fmt.Errorf("%w: block aggregate: %v", ErrLedgerUnavailable, verr))
		}
		res.AudioBlocks = blocks
		if !ok {
			return a.deny(ctx, req, res, start, a.cfg.Replies.VoiceDenied, ErrVoiceBudgetExceeded)
		}
		voiceChecked = true
	}

	completion, completionErr := a.completer.Complete(ctx, messages)
	if completionErr != nil {
		// Degrade to the fixed failure reply and zero the token spend so
		// the cumulative arithmetic below stays well-defined. The turn
		// still persists and replies.
		completion = Completion{Text: a.cfg.Replies.CompletionFailed, TokensUsed: 0}
	}
	res.State = StateCompletionCalled
	res.TokensUsed = completion.TokensUsed

	reply := a.cfg.Limits().TrimReply(completion.Text)
	res.TTSSymbols = int64(len([]rune(reply)))

	if !voiceChecked {
		// The model has already been called at this point. Text and voice
		// quotas are independent pools, so the original ordering verifies
		// voice spend only now; set precheck_voice to move it up.
		ok, blocks, verr := a.governor.VoiceBudgetOK(ctx, req.UserID, req.VoiceSeconds)
		if verr != nil {
			return a.fail(ctx, req, res, start, fmt.Errorf("%w: block aggregate: %v", ErrLedgerUnavailable, verr))
		}
		res.AudioBlocks = blocks
		if !ok {
			return a.deny(ctx, req, res, start, a.cfg.Replies.VoiceDenied, ErrVoiceBudgetExceeded)
		}
	}
	res.State = StateVoiceChecked

	total, err := a.ledger.Aggregate(ctx, req.UserID, MetricGPTTokens)
	if err != nil {
		return a.fail(ctx, req, res, start, fmt.Errorf("%w: token aggregate: %v", ErrLedgerUnavailable, err))
	}
	total += completion.TokensUsed
	res.TokensTotal = total

	now := a.now()
	var userBlocks int64
	if req.Voice() {
		userBlocks = res.AudioBlocks
	}
	userEvent := UsageEvent{
		UserID:      req.UserID,
		Text:        req.Text,
		Role:        RoleUser,
		AudioBlocks: userBlocks,
		CreatedAt:   now,
	}
	botEvent := UsageEvent{
		UserID:         req.UserID,
		Text:           reply,
		Role:           RoleBot,
		GPTTokensTotal: total,
		TTSSymbols:     res.TTSSymbols,
		CreatedAt:      now,
	}
	if err := a.ledger.AppendEvent(ctx, userEvent); err != nil {
		return a.fail(ctx, req, res, start, fmt.Errorf("%w: append user event: %v", ErrLedgerUnavailable, err))
	}
	if err := a.ledger.AppendEvent(ctx, botEvent); err != nil {
		return a.fail(ctx, req, res, start, fmt.Errorf("%w: append bot event: %v", ErrLedgerUnavailable, err))
	}
	res.State = StatePersisted

	res.Reply = reply
	var sendErr error
	switch {
	case req.Voice() && a.synth != nil:
		audio, serr := a.synth.Synthesize(ctx, reply)
		if serr != nil {
			res.Reply = a.cfg.Replies.SynthesisFailed
			sendErr = a.transport.SendText(ctx, req.UserID, res.Reply)
		} else {
			res.VoiceReply = true
			sendErr = a.transport.SendVoice(ctx, req.UserID, audio)
		}
	default:
		sendErr = a.transport.SendText(ctx, req.UserID, reply)
	}

	if completionErr != nil {
		res.State = StateFailed
		terr := &TurnError{
			Err:    fmt.Errorf("%w: %v", ErrCompletionFailed, completionErr),
			UserID: req.UserID,
			State:  StateFailed,
		}
		a.observe(req, res, start, terr)
		return res, terr
	}

	// Delivery is fire-and-forget: a send failure never changes the turn
	// outcome, it is only surfaced to the meter.
	res.State = StateReplied
	a.observe(req, res, start, sendErr)
	return res, nil
}

// VoiceTurn transcribes an inbound voice recording and runs the turn.
// Recordings longer than the configured maximum are rejected before any
// cloud call is made.
func (a *Assistant) VoiceTurn(ctx context.Context, userID int64, audio []byte, durationSeconds int) (TurnResult, error) {
	req := TurnRequest{UserID: userID, VoiceSeconds: durationSeconds}
	res := TurnResult{TurnID: uuid.New().String(), State: StateAdmitted}
	start := a.now()

	if a.stt == nil {
		return res, &TurnError{Err: ErrNoTranscriber, UserID: userID, State: StateFailed}
	}
	if durationSeconds > a.cfg.MaxVoiceSeconds {
		return a.deny(ctx, req, res, start, a.cfg.Replies.VoiceTooLong, ErrVoiceTooLong)
	}

	text, err := a.stt.Transcribe(ctx, audio)
	if err != nil {
		return a.fail(ctx, req, res, start, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err))
	}

	req.Text = text
	return a.Turn(ctx, req)
}

// deny ends the turn with a fixed denial reply. Nothing is billed.
func (a *Assistant) deny(ctx context.Context, req TurnRequest, res TurnResult, start time.Time, reply string, sentinel error) (TurnResult, error) {
	res.State = StateDenied
	res.Reply = reply
	_ = a.transport.SendText(ctx, req.UserID, reply)

	err := &TurnError{Err: sentinel, UserID: req.UserID, State: StateDenied}
	a.observe(req, res, start, err)
	return res, err
}

// fail ends the turn with the generic failure reply. Fatal to the turn,
// never to the process.
func (a *Assistant) fail(ctx context.Context, req TurnRequest, res TurnResult, start time.Time, cause error) (TurnResult, error) {
	res.State = StateFailed
	res.Reply = a.cfg.Replies.CompletionFailed
	_ = a.transport.SendText(ctx, req.UserID, res.Reply)

	err := &TurnError{Err: cause, UserID: req.UserID, State: StateFailed}
	a.observe(req, res, start, err)
	return res, err
}

func (a *Assistant) observe(req TurnRequest, res TurnResult, start time.Time, err error) {
	a.meter.OnResult(TurnResultEvent{
		TurnID:      res.TurnID,
		UserID:      req.UserID,
		Voice:       req.Voice(),
		State:       res.State,
		TokensUsed:  res.TokensUsed,
		AudioBlocks: res.AudioBlocks,
		TTSSymbols:  res.TTSSymbols,
		Duration:    a.now().Sub(start),
		Error:       err,
	})
}

// noopMeter is a meter that does nothing.
type noopMeter struct{}

func (noopMeter) OnTurn(TurnEvent)         {}
func (noopMeter) OnResult(TurnResultEvent) {}
