package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/shared"
)

const releaseGroupColumns = `id, artist_id, mbid, name, type, date, is_deleted, created_at, updated_at`

// ReleaseGroupRepository persists [models.ReleaseGroup] rows.
//
// Rows are never removed: withdrawal sets is_deleted.
type ReleaseGroupRepository struct {
	db DBTX
}

// NewReleaseGroupRepository creates a new [ReleaseGroupRepository] with the given database handle
func NewReleaseGroupRepository(db DBTX) *ReleaseGroupRepository {
	return &ReleaseGroupRepository{db: db}
}

// Create inserts a new release group with a generated ID
func (r *ReleaseGroupRepository) Create(ctx context.Context, rg *models.ReleaseGroup) error {
	if err := rg.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	rg.ID = shared.GenerateID()
	rg.CreatedAt = now()
	rg.UpdatedAt = rg.CreatedAt

	query := `INSERT INTO release_groups (` + releaseGroupColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rg.ID, rg.ArtistID, rg.MBID, rg.Name, string(rg.Type), int(rg.Date), boolInt(rg.Deleted), rg.CreatedAt, rg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert release group: %w", err)
	}

	return nil
}

// CreateIfAbsent inserts the release group unless (artist, mbid) is already stored.
func (r *ReleaseGroupRepository) CreateIfAbsent(ctx context.Context, rg *models.ReleaseGroup) (bool, error) {
	if err := rg.Validate(); err != nil {
		return false, fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	ts := now()

	query := `INSERT OR IGNORE INTO release_groups (` + releaseGroupColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		id, rg.ArtistID, rg.MBID, rg.Name, string(rg.Type), int(rg.Date), boolInt(rg.Deleted), ts, ts)
	if err != nil {
		return false, fmt.Errorf("failed to insert release group: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n > 0 {
		rg.ID, rg.CreatedAt, rg.UpdatedAt = id, ts, ts
	}
	return n > 0, nil
}

// GetByMBID retrieves a release group by catalog id, preferring a live row over a soft-deleted one
func (r *ReleaseGroupRepository) GetByMBID(ctx context.Context, mbid string) (*models.ReleaseGroup, error) {
	query := `SELECT ` + releaseGroupColumns + ` FROM release_groups WHERE mbid = ? ORDER BY is_deleted ASC, created_at DESC LIMIT 1`

	rg, err := r.scan(r.db.QueryRowContext(ctx, query, shared.NormalizeMBID(mbid)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: release group %s", shared.ErrInvalidInput, mbid)
	}
	return rg, err
}

// IndexByArtist loads every stored release group of an artist, soft-deleted ones included, keyed by mbid.
func (r *ReleaseGroupRepository) IndexByArtist(ctx context.Context, artistID string) (map[string]*models.ReleaseGroup, error) {
	query := `SELECT ` + releaseGroupColumns + ` FROM release_groups WHERE artist_id = ?`

	rows, err := r.db.QueryContext(ctx, query, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query release groups: %w", err)
	}
	defer rows.Close()

	index := make(map[string]*models.ReleaseGroup)
	for rows.Next() {
		rg, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		index[rg.MBID] = rg
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return index, nil
}

// Update writes every mutable field of the release group in one statement
func (r *ReleaseGroupRepository) Update(ctx context.Context, rg *models.ReleaseGroup) error {
	rg.UpdatedAt = now()

	query := `
		UPDATE release_groups
		SET name = ?, type = ?, date = ?, is_deleted = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, rg.Name, string(rg.Type), int(rg.Date), boolInt(rg.Deleted), rg.UpdatedAt, rg.ID)
	if err != nil {
		return fmt.Errorf("failed to update release group: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("release group not found: %s", rg.ID)
	}

	return nil
}

// SoftDeleteByArtist marks every live release group of an artist as deleted and returns how many changed.
func (r *ReleaseGroupRepository) SoftDeleteByArtist(ctx context.Context, artistID string) (int64, error) {
	query := `UPDATE release_groups SET is_deleted = 1, updated_at = ? WHERE artist_id = ? AND is_deleted = 0`

	result, err := r.db.ExecContext(ctx, query, now(), artistID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete release groups: %w", err)
	}
	return result.RowsAffected()
}

// Count returns how many release groups an artist has; soft-deleted rows are counted only if includeDeleted.
func (r *ReleaseGroupRepository) Count(ctx context.Context, artistID string, includeDeleted bool) (int, error) {
	query := `SELECT COUNT(*) FROM release_groups WHERE artist_id = ?`
	if !includeDeleted {
		query += ` AND is_deleted = 0`
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, artistID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count release groups: %w", err)
	}
	return n, nil
}

// Query runs a [ReleaseQuery] and returns the matching listings.
func (r *ReleaseGroupRepository) Query(ctx context.Context, q ReleaseQuery) ([]models.ReleaseListing, error) {
	query, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query releases: %w", err)
	}
	defer rows.Close()

	var listings []models.ReleaseListing
	for rows.Next() {
		var (
			l       models.ReleaseListing
			typ     string
			date    int
			deleted bool
		)
		err := rows.Scan(&l.ID, &l.ArtistID, &l.MBID, &l.Name, &typ, &date, &deleted, &l.CreatedAt, &l.UpdatedAt,
			&l.ArtistMBID, &l.ArtistName, &l.Starred)
		if err != nil {
			return nil, fmt.Errorf("failed to scan release: %w", err)
		}
		l.Type = models.ReleaseType(typ)
		l.Date = models.ReleaseDate(date)
		l.Deleted = deleted
		listings = append(listings, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return listings, nil
}

func (r *ReleaseGroupRepository) scan(s scanner) (*models.ReleaseGroup, error) {
	var (
		rg      models.ReleaseGroup
		typ     string
		date    int
		deleted bool
	)

	err := s.Scan(&rg.ID, &rg.ArtistID, &rg.MBID, &rg.Name, &typ, &date, &deleted, &rg.CreatedAt, &rg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan release group: %w", err)
	}

	rg.Type = models.ReleaseType(typ)
	rg.Date = models.ReleaseDate(date)
	rg.Deleted = deleted
	return &rg, nil
}
