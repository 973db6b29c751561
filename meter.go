package voxassist

import "time"

// Meter observes turn events for monitoring/logging.
type Meter interface {
	// OnTurn is called when a turn is accepted for processing.
	OnTurn(event TurnEvent)

	// OnResult is called when a turn reaches a terminal state.
	OnResult(event TurnResultEvent)
}

// TurnEvent describes an inbound turn.
type TurnEvent struct {
	TurnID       string
	UserID       int64
	Voice        bool
	TextLen      int
	VoiceSeconds int
}

// TurnResultEvent describes the outcome of a turn.
type TurnResultEvent struct {
	TurnID      string
	UserID      int64
	Voice       bool
	State       TurnState
	TokensUsed  int64
	AudioBlocks int64
	TTSSymbols  int64
	Duration    time.Duration
	Error       error
}
