// Package deepgram issues short-lived Deepgram credentials for browser
// streaming sessions.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/accountpulse/accountpulse/internal/integration"
	"github.com/accountpulse/accountpulse/internal/model"
)

// ServiceName labels Deepgram calls in metrics.
const ServiceName = "deepgram"

const (
	defaultBaseURL   = "https://api.deepgram.com"
	defaultListenURL = "wss://api.deepgram.com/v1/listen"
	defaultTTL       = 30
	maxTTL           = 3600
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("deepgram api key not configured")
	// ErrCredentialExpired is returned when a grant is already expired on arrival.
	ErrCredentialExpired = errors.New("deepgram credential expired before it was returned")
)

// Config holds the client settings.
type Config struct {
	APIKey     string
	BaseURL    string
	ListenURL  string
	Model      string
	Language   string
	Encoding   string
	SampleRate int
	// TokenTTL is the requested credential lifetime in seconds.
	TokenTTL int
}

// Client talks to the Deepgram auth API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	ttl        int
	listenURL  string
	now        func() time.Time
}

// New creates a Client. The listen URL is built once from configuration.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = integration.NewHTTPClient(ServiceName, nil)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if ttl > maxTTL {
		ttl = maxTTL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		ttl:        ttl,
		listenURL:  buildListenURL(cfg),
		now:        time.Now,
	}
}

func buildListenURL(cfg Config) string {
	base := cfg.ListenURL
	if base == "" {
		base = defaultListenURL
	}

	q := url.Values{}
	if cfg.Model != "" {
		q.Set("model", cfg.Model)
	}
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	if cfg.Encoding != "" {
		q.Set("encoding", cfg.Encoding)
	}
	if cfg.SampleRate > 0 {
		q.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	}
	q.Set("interim_results", "true")
	q.Set("smart_format", "true")

	return base + "?" + q.Encode()
}

// ListenURL returns the websocket URL browsers stream audio to.
func (c *Client) ListenURL() string {
	return c.listenURL
}

type grantRequest struct {
	TTLSeconds int `json:"ttl_seconds"`
}

type grantResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   float64 `json:"expires_in"`
}

// IssueTemporaryCredential asks Deepgram for a short-lived access token.
func (c *Client) IssueTemporaryCredential(ctx context.Context) (*model.TemporaryCredential, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(grantRequest{TTLSeconds: c.ttl})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/auth/grant", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	issuedAt := c.now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grant request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, integration.NewAPIError(ServiceName, resp)
	}

	var grant grantResponse
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if grant.AccessToken == "" {
		return nil, errors.New("deepgram returned an empty access token")
	}

	expiresIn := time.Duration(grant.ExpiresIn * float64(time.Second))
	if expiresIn <= 0 {
		expiresIn = time.Duration(c.ttl) * time.Second
	}

	cred := &model.TemporaryCredential{
		APIKey:    grant.AccessToken,
		ExpiresAt: issuedAt.Add(expiresIn).UTC(),
	}
	if cred.Expired(c.now()) {
		return nil, ErrCredentialExpired
	}
	return cred, nil
}
