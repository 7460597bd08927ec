package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/repositories"
	"github.com/desertthunder/relwatch/internal/services"
	"github.com/desertthunder/relwatch/internal/shared"
)

// SweepResult summarizes one pass over the artist table.
type SweepResult struct {
	Artists   int // artists visited
	Refreshed int // artist rows whose metadata changed
	Merged    int
	Skipped   int // blacklisted or gone upstream
	Failed    int
	Releases  ReconcileResult
}

// Walker visits every stored artist in mbid order and reconciles its catalog.
type Walker struct {
	store      *repositories.Store
	client     services.MetadataClient
	resolver   *Resolver
	reconciler *Reconciler
	jobs       JobRunner
	logger     *log.Logger

	refreshArtists bool
	refreshDay     int
	now            func() time.Time
}

// NewWalker creates a [Walker]. jobs may be nil.
//
// Artist metadata is refreshed on every sweep when refreshArtists is set, otherwise
// only on sweeps that start on refreshDay of the month (UTC).
func NewWalker(
	store *repositories.Store,
	client services.MetadataClient,
	resolver *Resolver,
	reconciler *Reconciler,
	jobs JobRunner,
	refreshArtists bool,
	refreshDay int,
	logger *log.Logger,
) *Walker {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Walker{
		store:          store,
		client:         client,
		resolver:       resolver,
		reconciler:     reconciler,
		jobs:           jobs,
		logger:         logger,
		refreshArtists: refreshArtists,
		refreshDay:     refreshDay,
		now:            time.Now,
	}
}

// SetClock replaces the time source.
func (w *Walker) SetClock(now func() time.Time) {
	w.now = now
}

// ShouldRefresh reports whether a sweep starting at t refreshes artist metadata.
func (w *Walker) ShouldRefresh(t time.Time) bool {
	return w.refreshArtists || t.UTC().Day() == w.refreshDay
}

// Sweep walks all artists once. Queued jobs are drained before each artist.
//
// Per-artist failures are logged and counted; only context cancellation and
// storage errors on the cursor abort the sweep.
func (w *Walker) Sweep(ctx context.Context, progress chan<- ProgressUpdate) (SweepResult, error) {
	var result SweepResult

	total, err := w.store.Artists.Count(ctx)
	if err != nil {
		return result, err
	}
	refresh := w.ShouldRefresh(w.now())
	w.logger.Info("starting sweep", "artists", total, "refresh", refresh)

	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if w.jobs != nil {
			if err := w.jobs.Process(ctx); err != nil {
				if ctx.Err() != nil {
					return result, ctx.Err()
				}
				w.logger.Warn("job processing stopped", "err", err)
			}
		}

		artist, err := w.store.Artists.NextAfter(ctx, cursor)
		if err != nil {
			return result, err
		}
		if artist == nil {
			break
		}
		cursor = artist.MBID
		result.Artists++
		sendProgress(progress, sweepUpdate(result.Artists, total, artist))

		if err := w.visit(ctx, artist, refresh, &result, progress); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Failed++
			w.logger.Error("could not check artist", "mbid", artist.MBID, "err", err)
		}
	}

	w.logger.Info("sweep complete",
		"artists", result.Artists,
		"created", result.Releases.Created,
		"updated", result.Releases.Updated,
		"deleted", result.Releases.Deleted,
		"merged", result.Merged,
		"failed", result.Failed)
	return result, nil
}

func (w *Walker) visit(ctx context.Context, artist *models.Artist, refresh bool, result *SweepResult, progress chan<- ProgressUpdate) error {
	logger := shared.WithLogger(w.logger, "artist", artist.MBID)

	if w.resolver.Blacklisted(artist.MBID) {
		result.Skipped++
		logger.Debug("skipping blacklisted artist")
		return nil
	}

	if refresh {
		data, err := w.lookup(ctx, logger, artist.MBID)
		if errors.Is(err, shared.ErrNotFound) {
			result.Skipped++
			logger.Warn("artist not found upstream")
			return nil
		}
		if err != nil {
			return err
		}

		if canonical := shared.NormalizeMBID(data.ID); canonical != artist.MBID {
			return w.merge(ctx, logger, artist, *data, result, progress)
		}

		name := data.Name
		if name == "" {
			name = artist.Name
		}
		if artist.Changed(name, data.SortName, data.Disambiguation) {
			artist.Name, artist.SortName, artist.Disambiguation = name, data.SortName, data.Disambiguation
			if err := w.store.Artists.Update(ctx, artist); err != nil {
				return err
			}
			result.Refreshed++
			sendProgress(progress, ProgressUpdate{
				Phase:   RefreshArtist,
				Step:    result.Artists,
				Message: fmt.Sprintf("Updated %s", artist.DisplayName()),
				Data:    artist,
			})
			logger.Info("updated artist", "name", artist.Name)
		}
	}

	r, err := w.reconciler.Reconcile(ctx, artist)
	result.Releases.add(r)
	if errors.Is(err, shared.ErrNotFound) {
		result.Skipped++
		logger.Warn("release groups not found upstream")
		return nil
	}
	if err != nil {
		return err
	}
	sendProgress(progress, reconcileUpdate(result.Artists, artist, r))
	return nil
}

// merge folds a stale artist into the one upstream redirected it to.
// The stale artist's catalog is not reconciled.
func (w *Walker) merge(ctx context.Context, logger *log.Logger, stale *models.Artist, data services.ArtistData, result *SweepResult, progress chan<- ProgressUpdate) error {
	res := w.resolver.ResolveData(ctx, data)
	switch res.Kind {
	case Resolved:
	case Transient:
		return res.Err
	default:
		result.Skipped++
		logger.Warn("cannot merge artist", "into", data.ID, "reason", res.Kind, "err", res.Err)
		return nil
	}

	sendProgress(progress, mergeUpdate(result.Artists, stale, res.Artist))
	if _, _, err := w.reconciler.Merge(ctx, stale, res.Artist); err != nil {
		return err
	}
	result.Merged++
	return nil
}

// lookup retries transient failures until the artist is fetched or ctx ends.
func (w *Walker) lookup(ctx context.Context, logger *log.Logger, mbid string) (*services.ArtistData, error) {
	for {
		data, err := w.client.GetArtist(ctx, mbid)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, shared.ErrTransient) {
			return nil, err
		}
		logger.Warn("could not look up artist, retrying", "err", err)
	}
}
