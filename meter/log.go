package meter

import (
	"log/slog"

	"github.com/voxassist/voxassist"
)

// LogMeter logs turn events using slog.
type LogMeter struct {
	Logger *slog.Logger
}

var _ voxassist.Meter = (*LogMeter)(nil)

// NewLogMeter creates a LogMeter with the given logger.
// If logger is nil, slog.Default() is used.
func NewLogMeter(logger *slog.Logger) *LogMeter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMeter{Logger: logger}
}

func (m *LogMeter) OnTurn(e voxassist.TurnEvent) {
	m.Logger.Info("turn",
		"turn_id", e.TurnID,
		"user", e.UserID,
		"voice", e.Voice,
		"text_len", e.TextLen,
		"voice_seconds", e.VoiceSeconds,
	)
}

func (m *LogMeter) OnResult(e voxassist.TurnResultEvent) {
	if e.Error == nil {
		m.Logger.Info("turn_result",
			"turn_id", e.TurnID,
			"user", e.UserID,
			"state", e.State.String(),
			"tokens_used", e.TokensUsed,
			"audio_blocks", e.AudioBlocks,
			"tts_symbols", e.TTSSymbols,
			"duration_ms", e.Duration.Milliseconds(),
		)
	} else {
		m.Logger.Warn("turn_result_error",
			"turn_id", e.TurnID,
			"user", e.UserID,
			"state", e.State.String(),
			"tokens_used", e.TokensUsed,
			"audio_blocks", e.AudioBlocks,
			"duration_ms", e.Duration.Milliseconds(),
			"error", e.Error,
		)
	}
}
