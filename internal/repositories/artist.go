package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/shared"
)

const artistColumns = `id, mbid, name, sort_name, disambiguation, created_at, updated_at`

// ArtistRepository implements [models.Repository] for [models.Artist] persistence.
type ArtistRepository struct {
	db DBTX
}

// NewArtistRepository creates a new [ArtistRepository] with the given database handle
func NewArtistRepository(db DBTX) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// Create inserts a new artist with a generated ID. A duplicate mbid is an error.
func (r *ArtistRepository) Create(ctx context.Context, artist *models.Artist) error {
	if err := artist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	artist.ID = shared.GenerateID()

	query := `INSERT INTO artists (` + artistColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		artist.ID, artist.MBID, artist.Name, artist.SortName, artist.Disambiguation, artist.CreatedAt, artist.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert artist: %w", err)
	}

	return nil
}

// Ensure inserts the artist unless one with the same mbid exists, and returns the stored row.
// The boolean reports whether a new row was created.
func (r *ArtistRepository) Ensure(ctx context.Context, artist *models.Artist) (*models.Artist, bool, error) {
	if err := artist.Validate(); err != nil {
		return nil, false, fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	query := `INSERT OR IGNORE INTO artists (` + artistColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		id, artist.MBID, artist.Name, artist.SortName, artist.Disambiguation, artist.CreatedAt, artist.UpdatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert artist: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	stored, err := r.GetByMBID(ctx, artist.MBID)
	if err != nil {
		return nil, false, err
	}
	return stored, n > 0, nil
}

// Get retrieves an artist by ID
func (r *ArtistRepository) Get(ctx context.Context, id string) (*models.Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByMBID retrieves an artist by MusicBrainz id
func (r *ArtistRepository) GetByMBID(ctx context.Context, mbid string) (*models.Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists WHERE mbid = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, shared.NormalizeMBID(mbid)))
}

// NextAfter returns the artist with the smallest mbid greater than cursor, or nil when the walk is complete.
// An empty cursor starts from the beginning.
func (r *ArtistRepository) NextAfter(ctx context.Context, cursor string) (*models.Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists WHERE mbid > ? ORDER BY mbid ASC LIMIT 1`

	artist, err := r.scanOne(r.db.QueryRowContext(ctx, query, cursor))
	if errors.Is(err, shared.ErrArtistMissing) {
		return nil, nil
	}
	return artist, err
}

// Update stores the artist's display attributes
func (r *ArtistRepository) Update(ctx context.Context, artist *models.Artist) error {
	artist.UpdatedAt = now()

	query := `
		UPDATE artists
		SET name = ?, sort_name = ?, disambiguation = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, artist.Name, artist.SortName, artist.Disambiguation, artist.UpdatedAt, artist.ID)
	if err != nil {
		return fmt.Errorf("failed to update artist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrArtistMissing, artist.ID)
	}

	return nil
}

// List retrieves artists matching the given criteria, ordered by sort name.
//
// Supported criteria: "user_id" restricts to a user's subscriptions.
func (r *ArtistRepository) List(ctx context.Context, criteria map[string]any) ([]*models.Artist, error) {
	query := `SELECT a.id, a.mbid, a.name, a.sort_name, a.disambiguation, a.created_at, a.updated_at FROM artists a`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " JOIN user_artists ua ON ua.artist_id = a.id WHERE ua.user_id = ?"
		args = append(args, userID)
	}

	query += " ORDER BY a.sort_name ASC, a.mbid ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	var artists []*models.Artist
	for rows.Next() {
		artist, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		artists = append(artists, artist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return artists, nil
}

// Count returns the number of stored artists
func (r *ArtistRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artists`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count artists: %w", err)
	}
	return n, nil
}

// scanOne scans a single [sql.Row] into a [models.Artist]
func (r *ArtistRepository) scanOne(row *sql.Row) (*models.Artist, error) {
	artist, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrArtistMissing
	}
	return artist, err
}

func (r *ArtistRepository) scan(s scanner) (*models.Artist, error) {
	var a models.Artist
	err := s.Scan(&a.ID, &a.MBID, &a.Name, &a.SortName, &a.Disambiguation, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan artist: %w", err)
	}
	return &a, nil
}
