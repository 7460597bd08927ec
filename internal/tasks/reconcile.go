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

// DefaultReleasePageSize is the catalog browse page size.
const DefaultReleasePageSize = 100

// ReconcileResult counts the writes of one reconciliation.
//
// Checked counts upstream records that carried a usable date and type.
type ReconcileResult struct {
	Created int
	Updated int
	Deleted int
	Checked int
}

func (r *ReconcileResult) add(o ReconcileResult) {
	r.Created += o.Created
	r.Updated += o.Updated
	r.Deleted += o.Deleted
	r.Checked += o.Checked
}

// Reconciler brings one artist's stored release groups in line with the catalog.
type Reconciler struct {
	store    *repositories.Store
	client   services.MetadataClient
	pageSize int
	logger   *log.Logger
}

// NewReconciler creates a [Reconciler]. A non-positive pageSize uses [DefaultReleasePageSize].
func NewReconciler(store *repositories.Store, client services.MetadataClient, pageSize int, logger *log.Logger) *Reconciler {
	if pageSize <= 0 {
		pageSize = DefaultReleasePageSize
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Reconciler{store: store, client: client, pageSize: pageSize, logger: logger}
}

// Reconcile pages through the artist's upstream release groups and applies creates,
// updates and soft deletes. Each page commits in its own transaction; release groups
// not seen upstream are withdrawn in a final transaction.
//
// Transient fetch failures are retried at the same offset until ctx ends.
// A not-found artist aborts with an error wrapping [shared.ErrNotFound].
func (r *Reconciler) Reconcile(ctx context.Context, artist *models.Artist) (ReconcileResult, error) {
	var result ReconcileResult
	logger := shared.WithLogger(r.logger, "artist", artist.MBID)

	index, err := r.store.ReleaseGroups.IndexByArtist(ctx, artist.ID)
	if err != nil {
		return result, err
	}
	seen := make(map[string]struct{})

	for offset := 0; ; offset += r.pageSize {
		page, err := fetchReleaseGroups(ctx, r.client, logger, artist.MBID, r.pageSize, offset)
		if err != nil {
			return result, err
		}
		logger.Debug("fetched release groups", "count", len(page), "offset", offset)

		var pageResult ReconcileResult
		err = r.store.InTx(ctx, func(tx *repositories.Store) error {
			for _, data := range page {
				if err := r.apply(ctx, tx, logger, artist, data, index, seen, &pageResult); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("failed to apply release group page at offset %d: %w", offset, err)
		}
		result.add(pageResult)

		if len(page) < r.pageSize {
			break
		}
	}

	err = r.store.InTx(ctx, func(tx *repositories.Store) error {
		for mbid, rg := range index {
			if rg.Deleted {
				continue
			}
			rg.Deleted = true
			if err := tx.ReleaseGroups.Update(ctx, rg); err != nil {
				return err
			}
			result.Deleted++
			logger.Info("withdrew release group", "mbid", mbid)
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("failed to withdraw release groups: %w", err)
	}

	return result, nil
}

// apply reconciles a single upstream record. Processed ids leave the index so that
// whatever remains after the last page was withdrawn upstream.
func (r *Reconciler) apply(
	ctx context.Context,
	tx *repositories.Store,
	logger *log.Logger,
	artist *models.Artist,
	data services.ReleaseGroupData,
	index map[string]*models.ReleaseGroup,
	seen map[string]struct{},
	result *ReconcileResult,
) error {
	mbid := shared.NormalizeMBID(data.ID)
	if _, dup := seen[mbid]; dup {
		return nil
	}
	seen[mbid] = struct{}{}

	local, exists := index[mbid]
	delete(index, mbid)

	typ, date, ok := classify(data)
	if !ok {
		// A record that lost its date or type upstream is retracted.
		if exists && !local.Deleted {
			local.Deleted = true
			if err := tx.ReleaseGroups.Update(ctx, local); err != nil {
				return err
			}
			result.Deleted++
			logger.Info("deleted release group", "mbid", mbid, "reason", "no date or type")
		}
		return nil
	}
	result.Checked++

	if !exists {
		rg := &models.ReleaseGroup{
			ArtistID: artist.ID,
			MBID:     mbid,
			Name:     data.Title,
			Type:     typ,
			Date:     date,
		}
		if err := tx.ReleaseGroups.Create(ctx, rg); err != nil {
			return err
		}
		notified, err := tx.Notifications.FanOut(ctx, rg.ID)
		if err != nil {
			return err
		}
		result.Created++
		logger.Info("created release group", "mbid", mbid, "name", rg.Name, "notified", notified)
		return nil
	}

	updated := false
	if local.Deleted {
		local.Deleted = false
		updated = true
	}
	// An empty upstream title never overwrites a stored name.
	if data.Title != "" && local.Name != data.Title {
		local.Name = data.Title
		updated = true
	}
	if local.Type != typ {
		local.Type = typ
		updated = true
	}
	if local.Date != date {
		local.Date = date
		updated = true
	}

	if updated {
		if err := tx.ReleaseGroups.Update(ctx, local); err != nil {
			return err
		}
		result.Updated++
		logger.Info("updated release group", "mbid", mbid)
	}
	return nil
}

// classify extracts the category and date of an upstream record.
// ok is false when either is missing or unparseable.
func classify(data services.ReleaseGroupData) (models.ReleaseType, models.ReleaseDate, bool) {
	typ, typed := data.Category()
	if !typed || !shared.IsValidMBID(shared.NormalizeMBID(data.ID)) {
		return "", 0, false
	}
	date, err := models.ParseReleaseDate(data.FirstReleaseDate)
	if err != nil || date == 0 {
		return "", 0, false
	}
	return typ, date, true
}

// fetchReleaseGroups retries transient failures at the same offset. The client's
// rate limiter spaces the retries.
func fetchReleaseGroups(ctx context.Context, client services.MetadataClient, logger *log.Logger, mbid string, limit, offset int) ([]services.ReleaseGroupData, error) {
	for {
		page, err := client.GetReleaseGroups(ctx, mbid, limit, offset)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, shared.ErrTransient) {
			return nil, err
		}
		logger.Warn("could not fetch release groups, retrying", "offset", offset, "err", err)
	}
}

// Merge handles an upstream artist merge: subscriptions move to the canonical
// artist and every release group of the stale artist is soft-deleted.
func (r *Reconciler) Merge(ctx context.Context, stale, canonical *models.Artist) (moved, deleted int64, err error) {
	err = r.store.InTx(ctx, func(tx *repositories.Store) error {
		if moved, err = tx.Subscriptions.Repoint(ctx, stale.ID, canonical.ID); err != nil {
			return err
		}
		deleted, err = tx.ReleaseGroups.SoftDeleteByArtist(ctx, stale.ID)
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to merge artist %s into %s: %w", stale.MBID, canonical.MBID, err)
	}

	r.logger.Info("merged artist", "from", stale.MBID, "into", canonical.MBID, "subscriptions", moved, "deleted", deleted)
	return moved, deleted, nil
}
