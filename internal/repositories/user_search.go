package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/relwatch/internal/models"
)

// UserSearchRepository stores artist searches that need manual disambiguation.
type UserSearchRepository struct {
	db DBTX
}

// NewUserSearchRepository creates a new [UserSearchRepository] with the given database handle
func NewUserSearchRepository(db DBTX) *UserSearchRepository {
	return &UserSearchRepository{db: db}
}

// Add records the search unless the user already has it pending
func (r *UserSearchRepository) Add(ctx context.Context, userID, search string) (bool, error) {
	search = strings.TrimSpace(search)
	query := `INSERT OR IGNORE INTO user_searches (user_id, search, created_at) VALUES (?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, userID, search, now())
	if err != nil {
		return false, fmt.Errorf("failed to insert search: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// ListByUser returns a user's pending searches, oldest first
func (r *UserSearchRepository) ListByUser(ctx context.Context, userID string) ([]models.UserSearch, error) {
	query := `SELECT id, user_id, search, created_at FROM user_searches WHERE user_id = ? ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query searches: %w", err)
	}
	defer rows.Close()

	var searches []models.UserSearch
	for rows.Next() {
		var s models.UserSearch
		if err := rows.Scan(&s.ID, &s.UserID, &s.Search, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search: %w", err)
		}
		searches = append(searches, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return searches, nil
}

// Delete removes a resolved search
func (r *UserSearchRepository) Delete(ctx context.Context, userID, search string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_searches WHERE user_id = ? AND search = ?`, userID, strings.TrimSpace(search))
	if err != nil {
		return fmt.Errorf("failed to delete search: %w", err)
	}
	return nil
}
