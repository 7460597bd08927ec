package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/relwatch/internal/shared"
)

// Artist is a locally stored catalog artist.
//
// Artists are never hard-deleted. An upstream merge is handled by re-pointing
// subscriptions to the canonical artist and soft-deleting the stale artist's release groups.
type Artist struct {
	ID             string
	MBID           string
	Name           string
	SortName       string
	Disambiguation string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewArtist creates an [Artist] with a normalized MusicBrainz id. The ID is assigned on insert.
func NewArtist(mbid, name, sortName, disambiguation string) *Artist {
	now := time.Now().UTC()
	return &Artist{
		MBID:           shared.NormalizeMBID(mbid),
		Name:           name,
		SortName:       sortName,
		Disambiguation: disambiguation,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Validate implements [Model].
func (a *Artist) Validate() error {
	if !shared.IsValidMBID(a.MBID) {
		return fmt.Errorf("%w: artist mbid %q", shared.ErrInvalidInput, a.MBID)
	}
	if a.Name == "" {
		return fmt.Errorf("%w: artist name is required", shared.ErrInvalidInput)
	}
	return nil
}

// Changed reports whether any displayed attribute differs from the given upstream values.
func (a *Artist) Changed(name, sortName, disambiguation string) bool {
	return a.Name != name || a.SortName != sortName || a.Disambiguation != disambiguation
}

// DisplayName appends the disambiguation comment, if any.
func (a *Artist) DisplayName() string {
	if a.Disambiguation == "" {
		return a.Name
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.Disambiguation)
}
