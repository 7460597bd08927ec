package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/repositories"
	"github.com/desertthunder/relwatch/internal/services"
	"github.com/desertthunder/relwatch/internal/shared"
)

// ResolutionKind tags the outcome of resolving an artist id.
type ResolutionKind int

const (
	Resolved ResolutionKind = iota
	Blacklisted
	Unknown  // not a well-formed mbid
	NotFound // upstream has no such artist
	Transient
)

func (k ResolutionKind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case Blacklisted:
		return "blacklisted"
	case Unknown:
		return "unknown"
	case NotFound:
		return "not_found"
	case Transient:
		return "transient"
	default:
		return ""
	}
}

// Resolution is the result of [Resolver.Resolve].
//
// Artist is set only for [Resolved]; Created reports that the artist row was inserted.
// Err carries the cause for every other kind.
type Resolution struct {
	Kind    ResolutionKind
	Artist  *models.Artist
	Created bool
	Err     error
}

// Resolver turns an upstream artist id into a stored artist row.
type Resolver struct {
	store     *repositories.Store
	client    services.MetadataClient
	blacklist map[string]struct{}
	logger    *log.Logger
}

// NewResolver creates a [Resolver]. Blacklist keys are normalized mbids.
func NewResolver(store *repositories.Store, client services.MetadataClient, blacklist map[string]struct{}, logger *log.Logger) *Resolver {
	if blacklist == nil {
		blacklist = map[string]struct{}{}
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Resolver{store: store, client: client, blacklist: blacklist, logger: logger}
}

// Blacklisted reports whether the mbid is on the configured blacklist.
func (r *Resolver) Blacklisted(mbid string) bool {
	_, ok := r.blacklist[shared.NormalizeMBID(mbid)]
	return ok
}

// Resolve returns the stored artist for mbid, looking it up upstream and inserting it when absent.
// Newly created artists get a backfill job queued.
func (r *Resolver) Resolve(ctx context.Context, mbid string) Resolution {
	mbid = shared.NormalizeMBID(mbid)
	if !shared.IsValidMBID(mbid) {
		return Resolution{Kind: Unknown, Err: fmt.Errorf("%w: %q", shared.ErrUnknownArtist, mbid)}
	}
	if r.Blacklisted(mbid) {
		return Resolution{Kind: Blacklisted, Err: fmt.Errorf("%w: %s", shared.ErrBlacklisted, mbid)}
	}

	artist, err := r.store.Artists.GetByMBID(ctx, mbid)
	switch {
	case err == nil:
		return Resolution{Kind: Resolved, Artist: artist}
	case !errors.Is(err, shared.ErrArtistMissing):
		return Resolution{Kind: Transient, Err: err}
	}

	data, err := r.client.GetArtist(ctx, mbid)
	if err != nil {
		return failedResolution(err)
	}
	return r.ResolveData(ctx, *data)
}

// ResolveData stores an artist already fetched from the catalog (a search hit or lookup result).
func (r *Resolver) ResolveData(ctx context.Context, data services.ArtistData) Resolution {
	mbid := shared.NormalizeMBID(data.ID)
	if !shared.IsValidMBID(mbid) {
		return Resolution{Kind: Unknown, Err: fmt.Errorf("%w: %q", shared.ErrUnknownArtist, data.ID)}
	}
	if r.Blacklisted(mbid) {
		return Resolution{Kind: Blacklisted, Err: fmt.Errorf("%w: %s", shared.ErrBlacklisted, mbid)}
	}

	name := data.Name
	if name == "" {
		name = mbid
	}
	candidate := models.NewArtist(mbid, name, data.SortName, data.Disambiguation)

	var res Resolution
	err := r.store.InTx(ctx, func(tx *repositories.Store) error {
		artist, created, err := tx.Artists.Ensure(ctx, candidate)
		if err != nil {
			return err
		}
		res = Resolution{Kind: Resolved, Artist: artist, Created: created}
		if !created {
			return nil
		}

		pending, err := tx.Jobs.HasPending(ctx, models.JobAddReleaseGroups, artist.MBID)
		if err != nil || pending {
			return err
		}
		return tx.Jobs.Enqueue(ctx, &models.Job{Kind: models.JobAddReleaseGroups, Payload: artist.MBID})
	})
	if err != nil {
		return Resolution{Kind: Transient, Err: fmt.Errorf("%w: %v", shared.ErrTransient, err)}
	}

	if res.Created {
		r.logger.Info("added artist", "mbid", res.Artist.MBID, "name", res.Artist.Name)
	}
	return res
}

func failedResolution(err error) Resolution {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return Resolution{Kind: NotFound, Err: err}
	case errors.Is(err, shared.ErrBlacklisted):
		return Resolution{Kind: Blacklisted, Err: err}
	default:
		return Resolution{Kind: Transient, Err: err}
	}
}
