package repositories

import (
	"fmt"

	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/shared"
)

// QueryMode selects one of the fixed listing shapes.
type QueryMode int

const (
	// ByArtist lists one artist's releases, newest first.
	ByArtist QueryMode = iota
	// ByUser lists releases of every artist a user follows, newest first.
	ByUser
	// Calendar lists releases of all artists dated on or before a day, newest first.
	Calendar
)

func (m QueryMode) String() string {
	switch m {
	case ByArtist:
		return "artist"
	case ByUser:
		return "user"
	case Calendar:
		return "calendar"
	default:
		return fmt.Sprintf("QueryMode(%d)", int(m))
	}
}

// ReleaseQuery describes a release listing. Soft-deleted release groups are always excluded.
type ReleaseQuery struct {
	Mode     QueryMode
	ArtistID string             // required by ByArtist
	UserID   string             // required by ByUser
	Until    models.ReleaseDate // upper bound for Calendar, inclusive
	Types    models.ReleaseTypeSet
	// StarredBy annotates each listing with whether this user starred it.
	StarredBy string
	Limit     int
	Offset    int
}

const defaultQueryLimit = 50

// Build returns the parameterized SQL and arguments for the query.
func (q ReleaseQuery) Build() (string, []any, error) {
	var (
		query string
		args  []any
	)

	query = `
		SELECT rg.id, rg.artist_id, rg.mbid, rg.name, rg.type, rg.date, rg.is_deleted, rg.created_at, rg.updated_at,
			a.mbid, a.name, s.user_id IS NOT NULL
		FROM release_groups rg
		JOIN artists a ON a.id = rg.artist_id
		LEFT JOIN stars s ON s.release_group_id = rg.id AND s.user_id = ?
	`
	args = append(args, q.StarredBy)

	switch q.Mode {
	case ByArtist:
		if q.ArtistID == "" {
			return "", nil, fmt.Errorf("%w: artist query needs an artist", shared.ErrMissingArgument)
		}
		query += ` WHERE rg.artist_id = ?`
		args = append(args, q.ArtistID)
	case ByUser:
		if q.UserID == "" {
			return "", nil, fmt.Errorf("%w: user query needs a user", shared.ErrMissingArgument)
		}
		query += ` JOIN user_artists ua ON ua.artist_id = rg.artist_id WHERE ua.user_id = ?`
		args = append(args, q.UserID)
	case Calendar:
		if q.Until == 0 {
			return "", nil, fmt.Errorf("%w: calendar query needs a date", shared.ErrMissingArgument)
		}
		query += ` WHERE rg.date <= ?`
		args = append(args, int(q.Until))
	default:
		return "", nil, fmt.Errorf("%w: query mode %s", shared.ErrInvalidArgument, q.Mode)
	}

	query += ` AND rg.is_deleted = 0`

	if len(q.Types) > 0 {
		types := q.Types.Slice()
		query += ` AND rg.type IN (` + placeholders(len(types)) + `)`
		for _, t := range types {
			args = append(args, string(t))
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	offset := max(q.Offset, 0)

	query += ` ORDER BY rg.date DESC, a.sort_name ASC, rg.name ASC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	return query, args, nil
}
