// Package asana is a minimal client for the Asana REST API.
package asana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/accountpulse/accountpulse/internal/integration"
	"github.com/accountpulse/accountpulse/internal/model"
)

// ServiceName labels Asana calls in metrics and errors.
const ServiceName = "asana"

const (
	pageSize   = 100
	maxPages   = 50
	optFields  = "name,color,archived,permalink_url"
	defaultURL = "https://app.asana.com/api/1.0"
)

// ErrNotConfigured is returned when no access token is set.
var ErrNotConfigured = errors.New("asana access token not configured")

// Config holds the client settings.
type Config struct {
	BaseURL     string
	AccessToken string
	WorkspaceID string
}

// Client lists Asana resources with a personal access token.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	workspaceID string
	limiter     *rate.Limiter
}

// New creates a Client. Requests are throttled to stay under Asana's
// per-token rate limit.
func New(cfg Config, httpClient *http.Client) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultURL
	}
	if httpClient == nil {
		httpClient = integration.NewHTTPClient(ServiceName, nil)
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		accessToken: cfg.AccessToken,
		workspaceID: cfg.WorkspaceID,
		limiter:     rate.NewLimiter(rate.Every(400*time.Millisecond), 5),
	}
}

type projectsPage struct {
	Data []struct {
		GID          string `json:"gid"`
		Name         string `json:"name"`
		Color        string `json:"color"`
		Archived     bool   `json:"archived"`
		PermalinkURL string `json:"permalink_url"`
	} `json:"data"`
	NextPage *struct {
		Offset string `json:"offset"`
	} `json:"next_page"`
}

// ListProjects returns every non-archived project visible to the token,
// following pagination. The result is never nil.
func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	if c.accessToken == "" {
		return nil, ErrNotConfigured
	}

	projects := make([]model.Project, 0)
	offset := ""

	for page := 0; page < maxPages; page++ {
		var resp projectsPage
		if err := c.get(ctx, "/projects", c.projectsQuery(offset), &resp); err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}

		for _, p := range resp.Data {
			projects = append(projects, model.Project{
				GID:          p.GID,
				Name:         p.Name,
				Color:        p.Color,
				Archived:     p.Archived,
				PermalinkURL: p.PermalinkURL,
			})
		}

		if resp.NextPage == nil || resp.NextPage.Offset == "" {
			return projects, nil
		}
		offset = resp.NextPage.Offset
	}

	return projects, nil
}

func (c *Client) projectsQuery(offset string) url.Values {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("archived", "false")
	q.Set("opt_fields", optFields)
	if c.workspaceID != "" {
		q.Set("workspace", c.workspaceID)
	}
	if offset != "" {
		q.Set("offset", offset)
	}
	return q
}

// get performs an authenticated GET and decodes the JSON body into dst.
func (c *Client) get(ctx context.Context, path string, query url.Values, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		// Wait refuses early when the next token would arrive after the deadline.
		if ctx.Err() == nil {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return integration.NewAPIError(ServiceName, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
