package voxassist

import "time"

// Role identifies the author of a message or ledger event.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is one entry of conversational context fed to the completion model.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// UsageEvent is one append-only ledger record. Events are immutable once
// written. GPTTokensTotal is a cumulative running total carried on bot
// events; AudioBlocks and TTSSymbols are per-event increments.
type UsageEvent struct {
	UserID         int64     `json:"user_id"`
	Text           string    `json:"text"`
	Role           Role      `json:"role"`
	GPTTokensTotal int64     `json:"total_gpt_tokens"`
	TTSSymbols     int64     `json:"tts_symbols"`
	AudioBlocks    int64     `json:"stt_blocks"`
	CreatedAt      time.Time `json:"created_at"`
}

// Metric names a per-user aggregate derived from ledger events.
type Metric string

const (
	MetricGPTTokens   Metric = "total_gpt_tokens"
	MetricAudioBlocks Metric = "total_audio_blocks"
	MetricTTSSymbols  Metric = "total_tts_symbols"
)

// TurnRequest describes one inbound user message. VoiceSeconds is the
// duration of the original voice recording; zero means a text turn.
type TurnRequest struct {
	UserID       int64
	Text         string
	VoiceSeconds int
}

// Voice reports whether the turn originated as a voice message.
func (r TurnRequest) Voice() bool { return r.VoiceSeconds > 0 }

// TurnState is the position of a turn in its state machine.
type TurnState int

const (
	StateAdmitted TurnState = iota
	StateContextBuilt
	StateTokenChecked
	StateCompletionCalled
	StateVoiceChecked
	StatePersisted
	StateReplied
	StateDenied
	StateFailed
)

func (s TurnState) String() string {
	switch s {
	case StateAdmitted:
		return "admitted"
	case StateContextBuilt:
		return "context_built"
	case StateTokenChecked:
		return "token_checked"
	case StateCompletionCalled:
		return "completion_called"
	case StateVoiceChecked:
		return "voice_checked"
	case StatePersisted:
		return "persisted"
	case StateReplied:
		return "replied"
	case StateDenied:
		return "denied"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a turn.
func (s TurnState) Terminal() bool {
	return s == StateReplied || s == StateDenied || s == StateFailed
}

// TurnResult describes the outcome of one turn.
type TurnResult struct {
	TurnID      string
	State       TurnState
	Reply       string // text actually delivered (trimmed reply or a fixed notice)
	TokensUsed  int64
	TokensTotal int64 // cumulative per-user total after the turn
	AudioBlocks int64
	TTSSymbols  int64
	VoiceReply  bool // delivered as synthesized audio
}
