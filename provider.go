package voxassist

import "context"

// Completer is the completion-model collaborator. Implementations own the
// wire format and the API credentials; see provider/yandex.
type Completer interface {
	// Complete sends the ordered context to the model and returns the
	// reply with the actual token spend reported by the API.
	Complete(ctx context.Context, messages []Message) (Completion, error)
}

// Completion is the completion model's reply for one turn.
type Completion struct {
	Text       string
	TokensUsed int64
}

// Synthesizer converts a trimmed reply to speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Transcriber converts an inbound voice recording to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Transport delivers replies to the user. Sends are fire-and-forget from
// the orchestrator's perspective; delivery failures are the transport's
// concern.
type Transport interface {
	SendText(ctx context.Context, userID int64, text string) error
	SendVoice(ctx context.Context, userID int64, audio []byte) error
}
