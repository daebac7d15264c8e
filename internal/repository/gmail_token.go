package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"

	"github.com/accountpulse/accountpulse/internal/model"
)

// ErrGmailTokenNotFound is returned when no Gmail account is connected.
var ErrGmailTokenNotFound = errors.New("gmail token not found")

// SaveGmailToken inserts the token or replaces the stored one for the same email.
// Token secrets must already be sealed by the caller. A missing ID is filled
// with a new ULID; an existing row keeps its original ID.
func (r *Repository) SaveGmailToken(ctx context.Context, token *model.GmailToken) error {
	query := `
		INSERT INTO gmail_tokens (id, email, access_token, refresh_token, token_type, expiry, scopes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (email) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = CASE
				WHEN EXCLUDED.refresh_token = '' THEN gmail_tokens.refresh_token
				ELSE EXCLUDED.refresh_token
			END,
			token_type = EXCLUDED.token_type,
			expiry = EXCLUDED.expiry,
			scopes = EXCLUDED.scopes,
			updated_at = EXCLUDED.updated_at
	`

	if token.ID == "" {
		token.ID = ulid.Make().String()
	}
	now := time.Now().UTC()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = now
	}
	token.UpdatedAt = now

	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.Email,
		token.AccessToken,
		token.RefreshToken,
		token.TokenType,
		token.Expiry,
		pq.Array(token.Scopes),
		token.CreatedAt,
		token.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save gmail token: %w", err)
	}

	return nil
}

// GetGmailToken returns the most recently updated token.
func (r *Repository) GetGmailToken(ctx context.Context) (*model.GmailToken, error) {
	query := `
		SELECT id, email, access_token, refresh_token, token_type, expiry, scopes, created_at, updated_at
		FROM gmail_tokens
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var token model.GmailToken
	err := r.pool.QueryRow(ctx, query).Scan(
		&token.ID,
		&token.Email,
		&token.AccessToken,
		&token.RefreshToken,
		&token.TokenType,
		&token.Expiry,
		pq.Array(&token.Scopes),
		&token.CreatedAt,
		&token.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGmailTokenNotFound
		}
		return nil, fmt.Errorf("failed to get gmail token: %w", err)
	}

	return &token, nil
}

// DeleteGmailTokens removes every stored token and reports how many were removed.
// Deleting when nothing is stored is not an error.
func (r *Repository) DeleteGmailTokens(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM gmail_tokens`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete gmail tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
