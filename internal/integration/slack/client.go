// Package slack lists channels through the Slack Web API.
package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"golang.org/x/time/rate"

	"github.com/accountpulse/accountpulse/internal/integration"
	"github.com/accountpulse/accountpulse/internal/model"
)

// ServiceName labels Slack calls in metrics.
const ServiceName = "slack"

const (
	pageSize = 200
	maxPages = 25
)

// ErrNotConfigured is returned when no bot token is set.
var ErrNotConfigured = errors.New("slack bot token not configured")

// Config holds the client settings.
type Config struct {
	BotToken     string
	ChannelTypes []string
	// APIURL overrides the Web API base, mostly for tests.
	APIURL string
}

// Client wraps the slack-go API client.
type Client struct {
	api     *slack.Client
	types   []string
	limiter *rate.Limiter
}

// New creates a Client. conversations.list is a Tier 2 method, so calls
// are held to roughly 20 per minute.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = integration.NewHTTPClient(ServiceName, nil)
	}

	opts := []slack.Option{slack.OptionHTTPClient(httpClient)}
	if cfg.APIURL != "" {
		apiURL := cfg.APIURL
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}

	var api *slack.Client
	if cfg.BotToken != "" {
		api = slack.New(cfg.BotToken, opts...)
	}

	types := cfg.ChannelTypes
	if len(types) == 0 {
		types = []string{"public_channel", "private_channel"}
	}

	return &Client{
		api:     api,
		types:   types,
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 3),
	}
}

// ListChannels returns every non-archived conversation of the configured
// types. Errors from Slack are returned unwrapped so their message reaches
// the caller as-is.
func (c *Client) ListChannels(ctx context.Context) ([]model.Channel, error) {
	if c.api == nil {
		return nil, ErrNotConfigured
	}

	channels := make([]model.Channel, 0)
	cursor := ""

	for page := 0; page < maxPages; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			// Wait refuses early when the next token would arrive after the deadline.
			if ctx.Err() == nil {
				err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
			}
			return nil, err
		}

		result, next, err := c.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Cursor:          cursor,
			ExcludeArchived: true,
			Limit:           pageSize,
			Types:           c.types,
		})
		if err != nil {
			return nil, err
		}

		for _, ch := range result {
			channels = append(channels, toChannel(ch))
		}

		if next == "" {
			break
		}
		cursor = next
	}

	return channels, nil
}

func toChannel(ch slack.Channel) model.Channel {
	return model.Channel{
		ID:         ch.ID,
		Name:       ch.Name,
		IsPrivate:  ch.IsPrivate,
		IsMember:   ch.IsMember,
		NumMembers: ch.NumMembers,
		Topic:      ch.Topic.Value,
	}
}
