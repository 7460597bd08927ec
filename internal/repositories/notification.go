package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/relwatch/internal/models"
)

// NotificationRepository persists pending fan-out records.
type NotificationRepository struct {
	db DBTX
}

// NewNotificationRepository creates a new [NotificationRepository] with the given database handle
func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// FanOut creates one notification per current subscriber of the release group's artist
func (r *NotificationRepository) FanOut(ctx context.Context, releaseGroupID string) (int64, error) {
	query := `
		INSERT OR IGNORE INTO notifications (user_id, release_group_id)
		SELECT ua.user_id, rg.id
		FROM user_artists ua
		JOIN release_groups rg ON rg.artist_id = ua.artist_id
		WHERE rg.id = ?
	`

	result, err := r.db.ExecContext(ctx, query, releaseGroupID)
	if err != nil {
		return 0, fmt.Errorf("failed to fan out notifications: %w", err)
	}
	return result.RowsAffected()
}

// NextUser returns the user owning the first pending notification in user order, or "" when none remain.
func (r *NotificationRepository) NextUser(ctx context.Context) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM notifications ORDER BY user_id, id LIMIT 1`).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query notifications: %w", err)
	}
	return userID, nil
}

// PendingForUser loads every pending notification of a user with its release group and artist
func (r *NotificationRepository) PendingForUser(ctx context.Context, userID string) ([]models.PendingNotification, error) {
	query := `
		SELECT n.id, n.user_id, n.release_group_id,
			rg.id, rg.artist_id, rg.mbid, rg.name, rg.type, rg.date, rg.is_deleted, rg.created_at, rg.updated_at,
			a.mbid, a.name
		FROM notifications n
		JOIN release_groups rg ON rg.id = n.release_group_id
		JOIN artists a ON a.id = rg.artist_id
		WHERE n.user_id = ?
		ORDER BY rg.date DESC, n.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var pending []models.PendingNotification
	for rows.Next() {
		var (
			p       models.PendingNotification
			typ     string
			date    int
			deleted bool
		)
		rel := &p.Release
		err := rows.Scan(&p.ID, &p.UserID, &p.ReleaseGroupID,
			&rel.ID, &rel.ArtistID, &rel.MBID, &rel.Name, &typ, &date, &deleted, &rel.CreatedAt, &rel.UpdatedAt,
			&rel.ArtistMBID, &rel.ArtistName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		rel.Type = models.ReleaseType(typ)
		rel.Date = models.ReleaseDate(date)
		rel.Deleted = deleted
		pending = append(pending, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return pending, nil
}

// Delete removes exactly the given notifications
func (r *NotificationRepository) Delete(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the number of pending notifications, optionally for one user
func (r *NotificationRepository) Count(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}
