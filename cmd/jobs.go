package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/shared"
	"github.com/desertthunder/relwatch/internal/ui"
	"github.com/urfave/cli/v3"
)

type jobRecord struct {
	ID      int64  `json:"id"`
	Kind    string `json:"kind"`
	UserID  string `json:"user_id,omitempty"`
	Payload string `json:"payload"`
	Created string `json:"created_at"`
}

// JobsList prints the queue in processing order.
func (r *Runner) JobsList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	criteria := map[string]any{}
	if kind := cmd.String("kind"); kind != "" {
		k, ok := models.ParseJobKind(kind)
		if !ok {
			return fmt.Errorf("%w: job kind %q", shared.ErrInvalidFlag, kind)
		}
		criteria["kind"] = k
	}

	jobs, err := store.Jobs.List(ctx, criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		records := make([]jobRecord, len(jobs))
		for i, j := range jobs {
			records[i] = jobRecord{
				ID:      j.ID,
				Kind:    string(j.Kind),
				UserID:  j.UserID,
				Payload: j.Payload,
				Created: j.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			}
		}
		return r.writeJSON(records, cmd.Bool("pretty"))
	}

	if len(jobs) == 0 {
		r.writePlain("%s\n", ui.Help("No queued jobs"))
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Queued jobs (%d)", len(jobs)))
	for _, j := range jobs {
		r.writePlain("%6d  %-18s %s\n", j.ID, j.Kind, j.Payload)
	}
	return nil
}

// JobsProcess drains the queue once.
func (r *Runner) JobsProcess(ctx context.Context, cmd *cli.Command) error {
	progressCh, stop := r.follow(false)
	e, err := r.buildEngine(progressCh)
	if err != nil {
		stop()
		return err
	}

	err = e.jobs.Process(ctx)
	stop()
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.OK("✓ Job queue is empty"))
	return nil
}

// JobsAddArtist queues a free-text artist search for a user.
func (r *Runner) JobsAddArtist(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: artist search query", shared.ErrMissingArgument)
	}

	user, err := r.lookupUser(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	return r.enqueue(ctx, &models.Job{Kind: models.JobAddArtist, UserID: user.ID, Payload: query})
}

// JobsBackfill queues an add_release_groups job for a stored artist.
func (r *Runner) JobsBackfill(ctx context.Context, cmd *cli.Command) error {
	mbid, err := mbidArg(cmd)
	if err != nil {
		return err
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}
	if _, err := store.Artists.GetByMBID(ctx, mbid); err != nil {
		return err
	}

	return r.enqueue(ctx, &models.Job{Kind: models.JobAddReleaseGroups, Payload: mbid})
}

// JobsImportLastFM queues an import of a user's Last.fm top artists.
func (r *Runner) JobsImportLastFM(ctx context.Context, cmd *cli.Command) error {
	user, err := r.lookupUser(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	req := models.ImportRequest{
		Username: cmd.String("lastfm-user"),
		Count:    int(cmd.Int("count")),
		Period:   cmd.String("period"),
	}
	if err := req.Validate(); err != nil {
		return err
	}
	payload, err := req.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode import request: %w", err)
	}

	if r.config.LastFM.APIKey == "" && r.library == nil {
		r.logger.Warn("lastfm.api_key is not set, the import job will be dropped when processed")
	}

	return r.enqueue(ctx, &models.Job{Kind: models.JobImportLastFM, UserID: user.ID, Payload: payload})
}

// JobsCover queues a cover art download.
func (r *Runner) JobsCover(ctx context.Context, cmd *cli.Command) error {
	mbid, err := mbidArg(cmd)
	if err != nil {
		return err
	}
	return r.enqueue(ctx, &models.Job{Kind: models.JobGetCover, Payload: mbid})
}

func (r *Runner) enqueue(ctx context.Context, job *models.Job) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	if err := store.Jobs.Enqueue(ctx, job); err != nil {
		return err
	}

	r.logger.Info("job queued", "id", job.ID, "kind", job.Kind)
	r.writePlain("%s %s job %d\n", ui.OK("✓ Queued"), job.Kind, job.ID)
	return nil
}

// mbidArg reads and validates the first positional argument as a MusicBrainz id.
func mbidArg(cmd *cli.Command) (string, error) {
	raw := cmd.Args().First()
	if raw == "" {
		return "", fmt.Errorf("%w: MusicBrainz id", shared.ErrMissingArgument)
	}
	mbid := shared.NormalizeMBID(raw)
	if !shared.IsValidMBID(mbid) {
		return "", fmt.Errorf("%w: %q is not a MusicBrainz id", shared.ErrInvalidArgument, raw)
	}
	return mbid, nil
}
