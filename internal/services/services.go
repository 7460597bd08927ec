package services

import (
	"context"
	"strings"

	"github.com/desertthunder/relwatch/internal/models"
)

// MetadataClient fetches artists and release groups from the music catalog.
//
// Errors wrap [shared.ErrTransient] or [shared.ErrNotFound].
type MetadataClient interface {
	// GetArtist looks up an artist. The returned ID differs from mbid when the artist was merged upstream.
	GetArtist(ctx context.Context, mbid string) (*ArtistData, error)

	// GetReleaseGroups browses one page of an artist's release groups.
	GetReleaseGroups(ctx context.Context, artistMBID string, limit, offset int) ([]ReleaseGroupData, error)

	// SearchArtists runs a free-text artist search and returns the page and the total hit count.
	SearchArtists(ctx context.Context, query string, limit, offset int) ([]ArtistData, int, error)

	// GetReleases browses one page of releases in a release group.
	GetReleases(ctx context.Context, releaseGroupMBID string, limit, offset int) ([]ReleaseData, error)
}

// Library lists the artists in a user's listening history.
type Library interface {
	// GetArtists returns one page (1-based) of artists and the total page count.
	GetArtists(ctx context.Context, username, period string, page, limit int) ([]LibraryArtist, int, error)
}

// Mailer delivers one email. A returned error means the caller should retry later.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// CoverFetcher downloads and stores cover art for a release group.
type CoverFetcher interface {
	FetchCover(ctx context.Context, releaseGroupMBID string) error
}

// ArtistData is an artist as returned by the catalog. Disambiguation may be empty.
type ArtistData struct {
	ID             string
	Name           string
	SortName       string
	Disambiguation string
}

// ReleaseGroupData is a release group as returned by the catalog.
//
// PrimaryType and FirstReleaseDate are empty when upstream omits them.
type ReleaseGroupData struct {
	ID               string
	Title            string
	PrimaryType      string
	SecondaryTypes   []string
	FirstReleaseDate string
}

// Category maps the catalog's primary and secondary types onto a [models.ReleaseType].
//
// Compilation, live and remix secondaries win over the primary type; any other
// secondary (soundtrack, spoken word, ...) files the group under other.
// The boolean is false when the group has no primary type.
func (d ReleaseGroupData) Category() (models.ReleaseType, bool) {
	if d.PrimaryType == "" {
		return "", false
	}

	for _, want := range []models.ReleaseType{models.TypeCompilation, models.TypeLive, models.TypeRemix} {
		for _, s := range d.SecondaryTypes {
			if strings.EqualFold(s, string(want)) {
				return want, true
			}
		}
	}
	if len(d.SecondaryTypes) > 0 {
		return models.TypeOther, true
	}

	switch strings.ToLower(d.PrimaryType) {
	case "album":
		return models.TypeAlbum, true
	case "single":
		return models.TypeSingle, true
	case "ep":
		return models.TypeEP, true
	default:
		return models.TypeOther, true
	}
}

// ReleaseData is a single release inside a release group. Date may be empty.
type ReleaseData struct {
	ID   string
	Date string
}

// LibraryArtist is an artist from a listening history. MBID is empty when the service does not know it.
type LibraryArtist struct {
	Name string
	MBID string
}

// Email is a rendered message ready for delivery.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}
