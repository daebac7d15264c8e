// Package gmail manages the OAuth connection to a single Gmail account.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/accountpulse/accountpulse/internal/model"
	"github.com/accountpulse/accountpulse/internal/repository"
	"github.com/accountpulse/accountpulse/internal/secret"
)

var (
	// ErrNotConfigured is returned when the OAuth client id or secret is missing.
	ErrNotConfigured = errors.New("gmail oauth client not configured")
	// ErrStoreUnavailable is returned when no token store is wired.
	ErrStoreUnavailable = errors.New("gmail token store unavailable")
)

// Store persists the connected account's token.
type Store interface {
	SaveGmailToken(ctx context.Context, token *model.GmailToken) error
	GetGmailToken(ctx context.Context) (*model.GmailToken, error)
	DeleteGmailTokens(ctx context.Context) (int64, error)
}

// refreshWindow is how close to expiry a stored access token is refreshed.
const refreshWindow = 5 * time.Minute

// Config holds the OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Logger       *slog.Logger
}

// Service issues authorization URLs and manages the stored token.
type Service struct {
	oauth  *oauth2.Config
	store  Store
	box    *secret.Box
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Service. store may be nil, in which case every
// storage-backed operation returns ErrStoreUnavailable.
func New(cfg Config, store Store, box *secret.Box) *Service {
	if box == nil {
		box = &secret.Box{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Service{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		},
		store:  store,
		box:    box,
		logger: logger,
		now:    time.Now,
	}
}

// AuthURL builds the Google consent URL and returns it with its state value.
// The caller keeps state so the callback can be matched to this request.
// Offline access and prompt=consent make Google return a refresh token.
func (s *Service) AuthURL() (authURL, state string, err error) {
	if strings.TrimSpace(s.oauth.ClientID) == "" || strings.TrimSpace(s.oauth.ClientSecret) == "" {
		return "", "", ErrNotConfigured
	}

	state = uuid.NewString()
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), state, nil
}

// Status returns the stored token record, or nil when no account is connected.
// A token close to expiry is refreshed and stored again. A failed refresh
// leaves the account connected. A record that cannot be opened with the
// configured key is an error.
func (s *Service) Status(ctx context.Context) (*model.GmailToken, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}

	record, err := s.store.GetGmailToken(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrGmailTokenNotFound) {
			return nil, nil
		}
		return nil, err
	}

	refresh, err := s.box.Open(record.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("open refresh token: %w", err)
	}
	if _, err := s.box.Open(record.AccessToken); err != nil {
		return nil, fmt.Errorf("open access token: %w", err)
	}

	if refresh == "" || !record.ExpiresSoon(s.now(), refreshWindow) {
		return record, nil
	}

	refreshed, err := s.refresh(ctx, record, refresh)
	if err != nil {
		s.logger.Warn("gmail_token_refresh_failed",
			slog.String("email", record.Email),
			slog.String("error", err.Error()),
		)
		return record, nil
	}
	return refreshed, nil
}

// refresh exchanges the refresh token and stores the new access token.
func (s *Service) refresh(ctx context.Context, record *model.GmailToken, refreshToken string) (*model.GmailToken, error) {
	tok, err := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	access, err := s.box.Seal(tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("seal access token: %w", err)
	}
	// Google usually omits the refresh token on refresh; the store keeps the old one.
	rotated, err := s.box.Seal(tok.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("seal refresh token: %w", err)
	}

	updated := &model.GmailToken{
		ID:           record.ID,
		Email:        record.Email,
		AccessToken:  access,
		RefreshToken: rotated,
		TokenType:    tok.Type(),
		Scopes:       record.Scopes,
		CreatedAt:    record.CreatedAt,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		updated.Expiry = &expiry
	}

	if err := s.store.SaveGmailToken(ctx, updated); err != nil {
		return nil, err
	}
	if updated.RefreshToken == "" {
		updated.RefreshToken = record.RefreshToken
	}
	return updated, nil
}

// Disconnect removes the stored token. It succeeds when nothing is stored.
func (s *Service) Disconnect(ctx context.Context) error {
	if s.store == nil {
		return ErrStoreUnavailable
	}

	if _, err := s.store.DeleteGmailTokens(ctx); err != nil {
		return fmt.Errorf("disconnect gmail: %w", err)
	}
	return nil
}
