package repositories

import (
	"context"
	"fmt"
)

// StarRepository stores release groups a user marked as favourite.
type StarRepository struct {
	db DBTX
}

// NewStarRepository creates a new [StarRepository] with the given database handle
func NewStarRepository(db DBTX) *StarRepository {
	return &StarRepository{db: db}
}

// Set stars or unstars a release group for a user
func (r *StarRepository) Set(ctx context.Context, userID, releaseGroupID string, starred bool) error {
	var err error
	if starred {
		_, err = r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO stars (user_id, release_group_id, created_at) VALUES (?, ?, ?)`,
			userID, releaseGroupID, now())
	} else {
		_, err = r.db.ExecContext(ctx,
			`DELETE FROM stars WHERE user_id = ? AND release_group_id = ?`, userID, releaseGroupID)
	}
	if err != nil {
		return fmt.Errorf("failed to update star: %w", err)
	}
	return nil
}
