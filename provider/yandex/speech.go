package yandex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/voxassist/voxassist"
)

const (
	defaultSTTURL = "https://stt.api.cloud.yandex.net/speech/v1/stt:recognize"
	defaultTTSURL = "https://tts.api.cloud.yandex.net/speech/v1/tts:synthesize"
)

// SpeechKit adapts the Yandex SpeechKit v1 recognize and synthesize
// endpoints. It implements both voxassist.Transcriber and
// voxassist.Synthesizer.
type SpeechKit struct {
	tokens   TokenSource
	folderID string

	sttURL   string
	ttsURL   string
	topic    string
	language string
	voice    string
	emotion  string
	format   string

	httpClient *http.Client
}

var (
	_ voxassist.Transcriber = (*SpeechKit)(nil)
	_ voxassist.Synthesizer = (*SpeechKit)(nil)
)

// SpeechOption configures the adapter.
type SpeechOption func(*SpeechKit)

// WithSpeechHTTPClient sets a custom HTTP client.
func WithSpeechHTTPClient(c *http.Client) SpeechOption {
	return func(s *SpeechKit) { s.httpClient = c }
}

// WithSTTURL overrides the recognition endpoint.
func WithSTTURL(url string) SpeechOption {
	return func(s *SpeechKit) { s.sttURL = url }
}

// WithTTSURL overrides the synthesis endpoint.
func WithTTSURL(url string) SpeechOption {
	return func(s *SpeechKit) { s.ttsURL = url }
}

// WithLanguage sets the recognition/synthesis language (default "ru-RU").
func WithLanguage(lang string) SpeechOption {
	return func(s *SpeechKit) { s.language = lang }
}

// WithVoice sets the synthesis voice (default "filipp").
func WithVoice(voice string) SpeechOption {
	return func(s *SpeechKit) { s.voice = voice }
}

// WithEmotion sets the synthesis emotion hint (default "good").
func WithEmotion(emotion string) SpeechOption {
	return func(s *SpeechKit) { s.emotion = emotion }
}

// WithAudioFormat sets the audio container (default "oggopus").
func WithAudioFormat(format string) SpeechOption {
	return func(s *SpeechKit) { s.format = format }
}

// NewSpeechKit creates a SpeechKit adapter for the given folder.
func NewSpeechKit(tokens TokenSource, folderID string, opts ...SpeechOption) *SpeechKit {
	s := &SpeechKit{
		tokens:     tokens,
		folderID:   folderID,
		sttURL:     defaultSTTURL,
		ttsURL:     defaultTTSURL,
		topic:      "general",
		language:   "ru-RU",
		voice:      "filipp",
		emotion:    "good",
		format:     "oggopus",
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transcribe sends a voice recording to the recognize endpoint and
// returns the transcript.
func (s *SpeechKit) Transcribe(ctx context.Context, audio []byte) (string, error) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	params := url.Values{
		"topic":    {s.topic},
		"lang":     {s.language},
		"folderId": {s.folderID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.sttURL+"?"+params.Encode(), bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("yandex: recognize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("yandex: recognize call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("yandex: recognize status %d: %s", resp.StatusCode, msg)
	}

	var parsed struct {
		Result       string `json:"result"`
		ErrorCode    string `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("yandex: decode transcript: %w", err)
	}
	if parsed.ErrorCode != "" {
		return "", fmt.Errorf("yandex: recognize error %s: %s", parsed.ErrorCode, parsed.ErrorMessage)
	}
	return parsed.Result, nil
}

// Synthesize sends text to the synthesize endpoint and returns the audio.
func (s *SpeechKit) Synthesize(ctx context.Context, text string) ([]byte, error) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"text":     {text},
		"lang":     {s.language},
		"voice":    {s.voice},
		"emotion":  {s.emotion},
		"format":   {s.format},
		"folderId": {s.folderID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.ttsURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("yandex: synthesize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yandex: synthesize call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("yandex: synthesize status %d: %s", resp.StatusCode, msg)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yandex: read audio: %w", err)
	}
	return audio, nil
}
