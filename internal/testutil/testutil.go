package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/accountpulse/accountpulse/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// Migration file stems under migrations/.
const (
	MigrationGmailTokens      = "000001_gmail_tokens"
	MigrationAccountSentiment = "000002_account_sentiment"
)

// ApplyMigration executes migrations/<name>.<direction>.sql against the pool.
// direction is "up" or "down".
func ApplyMigration(ctx context.Context, pool *pgxpool.Pool, name, direction string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	path := filepath.Join(root, "migrations", name+"."+direction+".sql")
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s %s migration: %w", name, direction, err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply %s %s migration: %w", name, direction, err)
	}
	return nil
}

func resetSchema(ctx context.Context, pool *pgxpool.Pool, name string) error {
	if err := ApplyMigration(ctx, pool, name, "down"); err != nil {
		return err
	}
	return ApplyMigration(ctx, pool, name, "up")
}

// ResetGmailTokensSchema drops and recreates the gmail_tokens table.
func ResetGmailTokensSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, MigrationGmailTokens)
}

// ResetSentimentSchema drops and recreates the sentiment table and its view.
func ResetSentimentSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, MigrationAccountSentiment)
}

// InsertSentiment appends one analysis result for an account. Rows are
// written by the analysis pipeline in production; tests seed them here.
func InsertSentiment(ctx context.Context, pool *pgxpool.Pool, accountID, accountName string, sentiment model.Sentiment, score float64) error {
	query := `
		INSERT INTO account_sentiment (account_id, account_name, sentiment, score)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := pool.Exec(ctx, query, accountID, accountName, sentiment, score); err != nil {
		return fmt.Errorf("insert sentiment: %w", err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestGmailToken creates a token row for email that expires in an hour.
// Token fields are opaque strings; callers that need sealed values seal them.
func NewTestGmailToken(t testing.TB, email string) *model.GmailToken {
	t.Helper()
	now := time.Now().UTC()
	expiry := now.Add(time.Hour).Truncate(time.Microsecond)
	return &model.GmailToken{
		ID:           ulid.Make().String(),
		Email:        email,
		AccessToken:  "access-" + UniqueID("tok"),
		RefreshToken: "refresh-" + UniqueID("tok"),
		TokenType:    "Bearer",
		Expiry:       &expiry,
		Scopes:       []string{"https://www.googleapis.com/auth/gmail.readonly"},
	}
}

// UniqueEmail generates a unique mailbox address for tests.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
