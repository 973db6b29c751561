package voxassist

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrTokenBudgetExceeded = errors.New("voxassist: gpt token budget exceeded")
	ErrVoiceBudgetExceeded = errors.New("voxassist: audio block budget exceeded")
	ErrSessionLimit        = errors.New("voxassist: active session limit reached")
	ErrVoiceTooLong        = errors.New("voxassist: voice message exceeds max duration")
	ErrCompletionFailed    = errors.New("voxassist: completion call failed")
	ErrSynthesisFailed     = errors.New("voxassist: speech synthesis failed")
	ErrTranscriptionFailed = errors.New("voxassist: speech recognition failed")
	ErrLedgerUnavailable   = errors.New("voxassist: ledger operation failed")
	ErrNoTranscriber       = errors.New("voxassist: no transcriber configured")
)

// TurnError wraps an error with turn context.
type TurnError struct {
	Err    error
	UserID int64
	State  TurnState
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("voxassist: user=%d state=%s: %v", e.UserID, e.State, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// IsQuotaExceeded returns true if the error is a token or voice budget denial.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrTokenBudgetExceeded) || errors.Is(err, ErrVoiceBudgetExceeded)
}

// IsDenied returns true if the error ended a turn in a user-facing denial
// rather than an internal failure.
func IsDenied(err error) bool {
	return IsQuotaExceeded(err) ||
		errors.Is(err, ErrSessionLimit) ||
		errors.Is(err, ErrVoiceTooLong)
}
