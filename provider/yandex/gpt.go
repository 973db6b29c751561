// Package yandex provides Yandex Cloud adapters for voxassist: the GPT
// completion model and the SpeechKit speech services, plus IAM token
// sourcing from the compute metadata endpoint.
package yandex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/voxassist/voxassist"
)

const defaultCompletionURL = "https://llm.api.cloud.yandex.net/foundationModels/v1/completion"

// GPT is a Yandex GPT completion adapter.
type GPT struct {
	tokens        TokenSource
	folderID      string
	model         string
	temperature   float64
	maxTokens     int
	systemPrompt  string
	completionURL string
	httpClient    *http.Client
}

var _ voxassist.Completer = (*GPT)(nil)

// GPTOption configures the adapter.
type GPTOption func(*GPT)

// WithGPTHTTPClient sets a custom HTTP client.
func WithGPTHTTPClient(c *http.Client) GPTOption {
	return func(g *GPT) { g.httpClient = c }
}

// WithModel sets the model segment of the modelUri (default "yandexgpt-lite").
func WithModel(model string) GPTOption {
	return func(g *GPT) { g.model = model }
}

// WithTemperature sets the sampling temperature (default 0.7).
func WithTemperature(t float64) GPTOption {
	return func(g *GPT) { g.temperature = t }
}

// WithMaxTokens bounds the completion length (default 120).
func WithMaxTokens(n int) GPTOption {
	return func(g *GPT) { g.maxTokens = n }
}

// WithSystemPrompt prepends a system message to every request.
func WithSystemPrompt(prompt string) GPTOption {
	return func(g *GPT) { g.systemPrompt = prompt }
}

// WithCompletionURL overrides the completion endpoint.
func WithCompletionURL(url string) GPTOption {
	return func(g *GPT) { g.completionURL = url }
}

// NewGPT creates a Yandex GPT adapter for the given folder.
func NewGPT(tokens TokenSource, folderID string, opts ...GPTOption) *GPT {
	g := &GPT{
		tokens:        tokens,
		folderID:      folderID,
		model:         "yandexgpt-lite",
		temperature:   0.7,
		maxTokens:     120,
		completionURL: defaultCompletionURL,
		httpClient:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// apiRequest is the foundationModels completion request format.
type apiRequest struct {
	ModelURI          string            `json:"modelUri"`
	CompletionOptions completionOptions `json:"completionOptions"`
	Messages          []apiMessage      `json:"messages"`
}

type completionOptions struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   string  `json:"maxTokens"` // the API takes stringified ints
}

type apiMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// apiResponse is the foundationModels completion response format. Token
// counts arrive as strings.
type apiResponse struct {
	Result struct {
		Alternatives []struct {
			Message apiMessage `json:"message"`
			Status  string     `json:"status"`
		} `json:"alternatives"`
		Usage struct {
			InputTextTokens  string `json:"inputTextTokens"`
			CompletionTokens string `json:"completionTokens"`
			TotalTokens      string `json:"totalTokens"`
		} `json:"usage"`
	} `json:"result"`
}

// Complete sends the context to Yandex GPT and returns the reply with the
// token spend the API reports.
func (g *GPT) Complete(ctx context.Context, messages []voxassist.Message) (voxassist.Completion, error) {
	token, err := g.tokens.Token(ctx)
	if err != nil {
		return voxassist.Completion{}, err
	}

	apiMessages := make([]apiMessage, 0, len(messages)+1)
	if g.systemPrompt != "" {
		apiMessages = append(apiMessages, apiMessage{Role: "system", Text: g.systemPrompt})
	}
	for _, m := range messages {
		apiMessages = append(apiMessages, apiMessage{Role: apiRole(m.Role), Text: m.Text})
	}

	body, err := json.Marshal(apiRequest{
		ModelURI: fmt.Sprintf("gpt://%s/%s", g.folderID, g.model),
		CompletionOptions: completionOptions{
			Temperature: g.temperature,
			MaxTokens:   strconv.Itoa(g.maxTokens),
		},
		Messages: apiMessages,
	})
	if err != nil {
		return voxassist.Completion{}, fmt.Errorf("yandex: marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.completionURL, bytes.NewReader(body))
	if err != nil {
		return voxassist.Completion{}, fmt.Errorf("yandex: completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-folder-id", g.folderID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return voxassist.Completion{}, fmt.Errorf("yandex: completion call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return voxassist.Completion{}, fmt.Errorf("yandex: completion status %d: %s", resp.StatusCode, msg)
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return voxassist.Completion{}, fmt.Errorf("yandex: decode completion: %w", err)
	}
	if len(parsed.Result.Alternatives) == 0 {
		return voxassist.Completion{}, fmt.Errorf("yandex: completion returned no alternatives")
	}

	tokensUsed, _ := strconv.ParseInt(parsed.Result.Usage.TotalTokens, 10, 64)
	return voxassist.Completion{
		Text:       parsed.Result.Alternatives[0].Message.Text,
		TokensUsed: tokensUsed,
	}, nil
}

func apiRole(r voxassist.Role) string {
	if r == voxassist.RoleBot {
		return "assistant"
	}
	return "user"
}
