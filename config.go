package voxassist

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the assistant configuration. All values are fixed at process
// start; nothing here is runtime-mutable.
type Config struct {
	// MaxUsers caps the number of concurrently active sessions.
	MaxUsers int `yaml:"max_users"`

	// InactivitySeconds is the session inactivity timeout.
	InactivitySeconds int `yaml:"inactivity_seconds"`

	// Per-user lifetime consumption caps.
	MaxGPTTokens  int64 `yaml:"max_user_gpt_tokens"`
	MaxTTSSymbols int64 `yaml:"max_user_tts_symbols"`
	MaxSTTBlocks  int64 `yaml:"max_user_stt_blocks"`

	// AudioBlockSeconds is the billing unit for voice input.
	AudioBlockSeconds int `yaml:"audio_block_seconds"`

	// ContextWindow is the number of ledger messages fed to the
	// completion model ahead of the current input.
	ContextWindow int `yaml:"context_window"`

	// MaxVoiceSeconds bounds a single inbound voice recording.
	MaxVoiceSeconds int `yaml:"max_voice_seconds"`

	// PrecheckVoice moves the voice budget check ahead of the completion
	// call. Off by default: text and voice quotas are independent pools
	// and the original ordering checks voice only after the model ran.
	PrecheckVoice bool `yaml:"precheck_voice"`

	Replies ReplyConfig `yaml:"replies"`
}

// ReplyConfig holds the fixed user-facing denial and failure strings.
type ReplyConfig struct {
	TokensDenied     string `yaml:"tokens_denied"`
	VoiceDenied      string `yaml:"voice_denied"`
	Busy             string `yaml:"busy"`
	VoiceTooLong     string `yaml:"voice_too_long"`
	CompletionFailed string `yaml:"completion_failed"`
	SynthesisFailed  string `yaml:"synthesis_failed"`
}

// DefaultConfig returns the configuration used by the reference deployment.
func DefaultConfig() Config {
	return Config{
		MaxUsers:          3,
		InactivitySeconds: 60,
		MaxGPTTokens:      5000,
		MaxTTSSymbols:     5000,
		MaxSTTBlocks:      10,
		AudioBlockSeconds: 15,
		ContextWindow:     5,
		MaxVoiceSeconds:   30,
		Replies: ReplyConfig{
			TokensDenied:     "GPT token limit exceeded. Purchase more tokens to continue.",
			VoiceDenied:      "Audio block limit exceeded.",
			Busy:             "The assistant is at capacity right now, try again in a minute.",
			VoiceTooLong:     "Voice messages longer than 30 seconds are not accepted.",
			CompletionFailed: "Something went wrong, please try again.",
			SynthesisFailed:  "Failed to generate the voice reply.",
		},
	}
}

// LoadConfig reads and parses a YAML config file on top of the defaults.
// Environment variables in the format ${VAR} are expanded before parsing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("voxassist: read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("voxassist: parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the config for required fields and consistency.
func (c Config) Validate() error {
	if c.MaxUsers <= 0 {
		return fmt.Errorf("voxassist: config: max_users must be positive, got %d", c.MaxUsers)
	}
	if c.InactivitySeconds <= 0 {
		return fmt.Errorf("voxassist: config: inactivity_seconds must be positive, got %d", c.InactivitySeconds)
	}
	if c.MaxGPTTokens <= 0 {
		return fmt.Errorf("voxassist: config: max_user_gpt_tokens must be positive, got %d", c.MaxGPTTokens)
	}
	if c.MaxTTSSymbols <= 0 {
		return fmt.Errorf("voxassist: config: max_user_tts_symbols must be positive, got %d", c.MaxTTSSymbols)
	}
	if c.MaxSTTBlocks <= 0 {
		return fmt.Errorf("voxassist: config: max_user_stt_blocks must be positive, got %d", c.MaxSTTBlocks)
	}
	if c.AudioBlockSeconds <= 0 {
		return fmt.Errorf("voxassist: config: audio_block_seconds must be positive, got %d", c.AudioBlockSeconds)
	}
	if c.ContextWindow < 0 {
		return fmt.Errorf("voxassist: config: context_window must not be negative, got %d", c.ContextWindow)
	}
	if c.MaxVoiceSeconds <= 0 {
		return fmt.Errorf("voxassist: config: max_voice_seconds must be positive, got %d", c.MaxVoiceSeconds)
	}
	return nil
}

// InactivityTimeout returns the session timeout as a duration.
func (c Config) InactivityTimeout() time.Duration {
	return time.Duration(c.InactivitySeconds) * time.Second
}

// Limits returns the per-user consumption limits consumed by the Governor.
func (c Config) Limits() Limits {
	return Limits{
		MaxGPTTokens:      c.MaxGPTTokens,
		MaxTTSSymbols:     c.MaxTTSSymbols,
		MaxSTTBlocks:      c.MaxSTTBlocks,
		AudioBlockSeconds: c.AudioBlockSeconds,
	}
}
