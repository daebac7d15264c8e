package repository

import (
	"context"
	"fmt"

	"github.com/accountpulse/accountpulse/internal/model"
)

// DefaultChangesLimit and MaxChangesLimit bound ListAccountChanges.
const (
	DefaultChangesLimit = 50
	MaxChangesLimit     = 200
)

// ListAccountChanges returns accounts whose latest sentiment differs from the
// previous analysis, most recent first.
func (r *Repository) ListAccountChanges(ctx context.Context, limit int) ([]*model.AccountChange, error) {
	if limit <= 0 || limit > MaxChangesLimit {
		limit = DefaultChangesLimit
	}

	query := `
		SELECT account_id, account_name, previous_sentiment, current_sentiment,
		       previous_score, current_score, changed_at
		FROM account_sentiment_changes
		ORDER BY changed_at DESC, account_id
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query account changes: %w", err)
	}
	defer rows.Close()

	changes := make([]*model.AccountChange, 0)
	for rows.Next() {
		var c model.AccountChange
		if err := rows.Scan(
			&c.AccountID,
			&c.AccountName,
			&c.PreviousSentiment,
			&c.CurrentSentiment,
			&c.PreviousScore,
			&c.CurrentScore,
			&c.ChangedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account change: %w", err)
		}
		changes = append(changes, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account changes: %w", err)
	}

	return changes, nil
}
