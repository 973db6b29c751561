package yandex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// DefaultMetadataURL is the compute instance metadata endpoint that issues
// IAM tokens for the attached service account.
const DefaultMetadataURL = "http://169.254.169.254/computeMetadata/v1/instance/service-accounts/default/token"

// refreshMargin renews the token this long before its reported expiry.
const refreshMargin = time.Minute

// TokenSource supplies a bearer token for Yandex Cloud API calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token. Useful for API keys and tests.
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (string, error) {
	return string(s), nil
}

// MetadataTokenSource fetches IAM tokens from the instance metadata
// endpoint and caches them until shortly before expiry. Safe for
// concurrent use.
type MetadataTokenSource struct {
	url        string
	httpClient *http.Client
	now        func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// MetadataOption configures a MetadataTokenSource.
type MetadataOption func(*MetadataTokenSource)

// WithMetadataURL overrides the metadata endpoint.
func WithMetadataURL(url string) MetadataOption {
	return func(s *MetadataTokenSource) { s.url = url }
}

// WithMetadataHTTPClient sets a custom HTTP client.
func WithMetadataHTTPClient(c *http.Client) MetadataOption {
	return func(s *MetadataTokenSource) { s.httpClient = c }
}

// NewMetadataTokenSource creates a token source backed by the instance
// metadata endpoint.
func NewMetadataTokenSource(opts ...MetadataOption) *MetadataTokenSource {
	s := &MetadataTokenSource{
		url:        DefaultMetadataURL,
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns a valid IAM token, fetching a fresh one when the cached
// token is missing or about to expire.
func (s *MetadataTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Before(s.expiresAt.Add(-refreshMargin)) {
		return s.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("yandex: metadata request: %w", err)
	}
	req.Header.Set("Metadata-Flavor", "Google")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("yandex: fetch iam token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("yandex: metadata endpoint status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("yandex: decode iam token: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("yandex: metadata endpoint returned empty token")
	}

	s.token = body.AccessToken
	s.expiresAt = now.Add(time.Duration(body.ExpiresIn) * time.Second)
	return s.token, nil
}
