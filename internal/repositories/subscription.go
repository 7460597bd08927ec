package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/relwatch/internal/models"
)

// SubscriptionRepository persists user to artist edges.
type SubscriptionRepository struct {
	db DBTX
}

// NewSubscriptionRepository creates a new [SubscriptionRepository] with the given database handle
func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Subscribe adds the edge unless it exists and reports whether it was created
func (r *SubscriptionRepository) Subscribe(ctx context.Context, userID, artistID string) (bool, error) {
	query := `INSERT OR IGNORE INTO user_artists (user_id, artist_id, created_at) VALUES (?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, userID, artistID, now())
	if err != nil {
		return false, fmt.Errorf("failed to subscribe: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// Unsubscribe removes the edge and reports whether it existed
func (r *SubscriptionRepository) Unsubscribe(ctx context.Context, userID, artistID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_artists WHERE user_id = ? AND artist_id = ?`, userID, artistID)
	if err != nil {
		return false, fmt.Errorf("failed to unsubscribe: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// Repoint moves every subscription of one artist to another.
//
// Users already following the target keep their original edge. Returns the number of edges added to the target.
func (r *SubscriptionRepository) Repoint(ctx context.Context, fromArtistID, toArtistID string) (int64, error) {
	query := `
		INSERT OR IGNORE INTO user_artists (user_id, artist_id, created_at)
		SELECT user_id, ?, created_at FROM user_artists WHERE artist_id = ?
	`

	result, err := r.db.ExecContext(ctx, query, toArtistID, fromArtistID)
	if err != nil {
		return 0, fmt.Errorf("failed to repoint subscriptions: %w", err)
	}

	moved, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_artists WHERE artist_id = ?`, fromArtistID); err != nil {
		return 0, fmt.Errorf("failed to remove stale subscriptions: %w", err)
	}

	return moved, nil
}

// ListByArtist returns the subscribers of an artist
func (r *SubscriptionRepository) ListByArtist(ctx context.Context, artistID string) ([]models.Subscription, error) {
	query := `SELECT user_id, artist_id, created_at FROM user_artists WHERE artist_id = ? ORDER BY user_id`

	rows, err := r.db.QueryContext(ctx, query, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var (
			s         models.Subscription
			createdAt time.Time
		)
		if err := rows.Scan(&s.UserID, &s.ArtistID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		s.CreatedAt = createdAt
		subs = append(subs, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return subs, nil
}

// Exists reports whether the user follows the artist
func (r *SubscriptionRepository) Exists(ctx context.Context, userID, artistID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM user_artists WHERE user_id = ? AND artist_id = ?)`
	if err := r.db.QueryRowContext(ctx, query, userID, artistID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check subscription: %w", err)
	}
	return exists, nil
}

// CountByUser returns how many artists a user follows
func (r *SubscriptionRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_artists WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return n, nil
}
