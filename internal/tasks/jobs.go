package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/repositories"
	"github.com/desertthunder/relwatch/internal/services"
	"github.com/desertthunder/relwatch/internal/shared"
)

const (
	DefaultSearchLimit    = 2
	DefaultImportPageSize = 50
)

// JobRunner drains the job queue.
type JobRunner interface {
	Process(ctx context.Context) error
}

// JobProcessor executes queued jobs in id order.
//
// A job is deleted once it completes or fails permanently. A transient failure
// stops the drain with the job left at the head of the queue; every side effect
// is insert-or-ignore so the retry cannot duplicate rows.
type JobProcessor struct {
	store    *repositories.Store
	client   services.MetadataClient
	resolver *Resolver
	library  services.Library
	covers   services.CoverFetcher
	logger   *log.Logger
	progress chan<- ProgressUpdate

	searchLimit     int
	releasePageSize int
	importPageSize  int
}

// JobOption configures a [JobProcessor].
type JobOption func(*JobProcessor)

// WithLibrary enables import_lastfm jobs.
func WithLibrary(l services.Library) JobOption {
	return func(p *JobProcessor) { p.library = l }
}

// WithCoverFetcher enables get_cover jobs.
func WithCoverFetcher(c services.CoverFetcher) JobOption {
	return func(p *JobProcessor) { p.covers = c }
}

func WithSearchLimit(n int) JobOption {
	return func(p *JobProcessor) {
		if n > 0 {
			p.searchLimit = n
		}
	}
}

func WithReleasePageSize(n int) JobOption {
	return func(p *JobProcessor) {
		if n > 0 {
			p.releasePageSize = n
		}
	}
}

func WithImportPageSize(n int) JobOption {
	return func(p *JobProcessor) {
		if n > 0 {
			p.importPageSize = n
		}
	}
}

// WithJobProgress reports each finished job on ch.
func WithJobProgress(ch chan<- ProgressUpdate) JobOption {
	return func(p *JobProcessor) { p.progress = ch }
}

// NewJobProcessor creates a [JobProcessor].
func NewJobProcessor(store *repositories.Store, client services.MetadataClient, resolver *Resolver, logger *log.Logger, opts ...JobOption) *JobProcessor {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	p := &JobProcessor{
		store:           store,
		client:          client,
		resolver:        resolver,
		logger:          logger,
		searchLimit:     DefaultSearchLimit,
		releasePageSize: DefaultReleasePageSize,
		importPageSize:  DefaultImportPageSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs jobs until the queue is empty.
//
// The returned error wraps [shared.ErrTransient] when a job must be retried later.
func (p *JobProcessor) Process(ctx context.Context) error {
	done := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		job, err := p.store.Jobs.Next(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrTransient, err)
		}
		if job == nil {
			return nil
		}

		logger := shared.WithLogger(p.logger, "job", job.ID, "kind", job.Kind)
		err = p.run(ctx, job)
		switch {
		case err == nil:
			logger.Debug("job complete")
		case ctx.Err() != nil:
			return ctx.Err()
		case permanent(err):
			logger.Warn("dropping job", "payload", job.Payload, "err", err)
		default:
			logger.Warn("job failed, will retry", "err", err)
			if errors.Is(err, shared.ErrTransient) {
				return fmt.Errorf("job %d (%s): %w", job.ID, job.Kind, err)
			}
			return fmt.Errorf("%w: job %d (%s): %w", shared.ErrTransient, job.ID, job.Kind, err)
		}

		if err := p.store.Jobs.Delete(ctx, job.ID); err != nil {
			return fmt.Errorf("%w: %w", shared.ErrTransient, err)
		}
		done++
		sendProgress(p.progress, ProgressUpdate{
			Phase:   ProcessJobs,
			Step:    done,
			Message: fmt.Sprintf("Finished %s job %d", job.Kind, job.ID),
			Data:    job,
		})
	}
}

// permanent reports whether retrying the job could never succeed.
func permanent(err error) bool {
	for _, target := range []error{
		shared.ErrInvalidInput,
		shared.ErrNotFound,
		shared.ErrUnknownArtist,
		shared.ErrArtistMissing,
		shared.ErrUserNotFound,
		shared.ErrMissingCredentials,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (p *JobProcessor) run(ctx context.Context, job *models.Job) error {
	switch job.Kind {
	case models.JobAddArtist:
		return p.runAddArtist(ctx, job)
	case models.JobAddReleaseGroups:
		return p.runAddReleaseGroups(ctx, job)
	case models.JobImportLastFM:
		return p.runImport(ctx, job)
	case models.JobGetCover:
		return p.runGetCover(ctx, job)
	default:
		return fmt.Errorf("%w: unknown job kind %q", shared.ErrInvalidInput, job.Kind)
	}
}

func (p *JobProcessor) runAddArtist(ctx context.Context, job *models.Job) error {
	if _, err := p.store.Users.Get(ctx, job.UserID); err != nil {
		return err
	}
	query := strings.TrimSpace(job.Payload)
	if query == "" {
		return fmt.Errorf("%w: empty artist search", shared.ErrInvalidInput)
	}
	_, err := p.addArtist(ctx, job.UserID, query)
	return err
}

// addArtist subscribes the user to the unambiguous search match for query, or
// saves the query for the user to disambiguate. The boolean reports whether
// either happened.
func (p *JobProcessor) addArtist(ctx context.Context, userID, query string) (bool, error) {
	results, _, err := p.client.SearchArtists(ctx, query, p.searchLimit, 0)
	if err != nil {
		return false, err
	}

	if match := pickMatch(query, results); match != nil {
		res := p.resolver.ResolveData(ctx, *match)
		switch res.Kind {
		case Resolved:
			return p.subscribe(ctx, userID, res.Artist)
		case Blacklisted:
			p.logger.Info("skipping blacklisted artist", "mbid", match.ID, "query", query)
			return false, nil
		case Transient:
			return false, res.Err
		}
	}

	if _, err := p.store.Searches.Add(ctx, userID, query); err != nil {
		return false, err
	}
	p.logger.Info("saved ambiguous search", "user", userID, "query", query, "results", len(results))
	return true, nil
}

// pickMatch returns the search hit to subscribe to, if any: the only result,
// or a first result whose name equals the query while the second's does not.
func pickMatch(query string, results []services.ArtistData) *services.ArtistData {
	switch {
	case len(results) == 1:
		return &results[0]
	case len(results) >= 2 &&
		strings.EqualFold(results[0].Name, query) &&
		!strings.EqualFold(results[1].Name, query):
		return &results[0]
	default:
		return nil
	}
}

func (p *JobProcessor) subscribe(ctx context.Context, userID string, artist *models.Artist) (bool, error) {
	added, err := p.store.Subscriptions.Subscribe(ctx, userID, artist.ID)
	if err != nil {
		return false, err
	}
	if added {
		p.logger.Info("subscribed", "user", userID, "artist", artist.MBID, "name", artist.Name)
	}
	return true, nil
}

// runAddReleaseGroups backfills an artist's catalog without notifying anyone.
func (p *JobProcessor) runAddReleaseGroups(ctx context.Context, job *models.Job) error {
	artist, err := p.store.Artists.GetByMBID(ctx, job.Payload)
	if err != nil {
		return err
	}

	created := 0
	for offset := 0; ; offset += p.releasePageSize {
		page, err := p.client.GetReleaseGroups(ctx, artist.MBID, p.releasePageSize, offset)
		if err != nil {
			return err
		}

		err = p.store.InTx(ctx, func(tx *repositories.Store) error {
			for _, data := range page {
				typ, date, ok := classify(data)
				if !ok {
					continue
				}
				rg := &models.ReleaseGroup{
					ArtistID: artist.ID,
					MBID:     shared.NormalizeMBID(data.ID),
					Name:     data.Title,
					Type:     typ,
					Date:     date,
				}
				added, err := tx.ReleaseGroups.CreateIfAbsent(ctx, rg)
				if err != nil {
					return err
				}
				if added {
					created++
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		if len(page) < p.releasePageSize {
			break
		}
	}

	p.logger.Info("backfilled release groups", "artist", artist.MBID, "created", created)
	return nil
}

func (p *JobProcessor) runImport(ctx context.Context, job *models.Job) error {
	if p.library == nil {
		return fmt.Errorf("%w: last.fm is not configured", shared.ErrMissingCredentials)
	}
	req, err := models.DecodeImportRequest(job.Payload)
	if err != nil {
		return err
	}
	if _, err := p.store.Users.Get(ctx, job.UserID); err != nil {
		return err
	}

	successes := 0
	for page := 1; ; page++ {
		artists, pages, err := p.library.GetArtists(ctx, req.Username, req.Period, page, p.importPageSize)
		if err != nil {
			return err
		}

		for _, a := range artists {
			if successes >= req.Count {
				break
			}
			ok, err := p.importArtist(ctx, job.UserID, a)
			if err != nil {
				return err
			}
			if ok {
				successes++
			}
		}

		if successes >= req.Count || page >= pages || len(artists) == 0 {
			break
		}
	}

	p.logger.Info("imported last.fm artists", "user", job.UserID, "lastfm", req.Username, "count", successes)
	return nil
}

func (p *JobProcessor) importArtist(ctx context.Context, userID string, a services.LibraryArtist) (bool, error) {
	if a.MBID != "" {
		res := p.resolver.Resolve(ctx, a.MBID)
		switch res.Kind {
		case Resolved:
			return p.subscribe(ctx, userID, res.Artist)
		case Blacklisted:
			return false, nil
		case Transient:
			return false, res.Err
		}
	}
	if strings.TrimSpace(a.Name) == "" {
		return false, nil
	}
	return p.addArtist(ctx, userID, strings.TrimSpace(a.Name))
}

func (p *JobProcessor) runGetCover(ctx context.Context, job *models.Job) error {
	if p.covers == nil {
		p.logger.Debug("no cover fetcher configured", "release_group", job.Payload)
		return nil
	}
	return p.covers.FetchCover(ctx, shared.NormalizeMBID(job.Payload))
}
