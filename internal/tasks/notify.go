package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/repositories"
	"github.com/desertthunder/relwatch/internal/services"
	"github.com/desertthunder/relwatch/internal/shared"
)

// DefaultRecencyWindow is how old a release may be and still be announced.
const DefaultRecencyWindow = 52 * 7 * 24 * time.Hour

// Renderer builds the email for one user's batch of releases.
type Renderer interface {
	Render(user *models.User, releases []models.ReleaseListing) (services.Email, error)
}

// Dispatcher drains the notification queue one user at a time.
type Dispatcher struct {
	store    *repositories.Store
	jobs     JobRunner
	limiter  *services.RateLimiter
	mailer   services.Mailer
	renderer Renderer
	window   time.Duration
	logger   *log.Logger
	now      func() time.Time
}

// NewDispatcher creates a [Dispatcher]. jobs and limiter may be nil.
// A non-positive window uses [DefaultRecencyWindow].
func NewDispatcher(
	store *repositories.Store,
	jobs JobRunner,
	limiter *services.RateLimiter,
	mailer services.Mailer,
	renderer Renderer,
	window time.Duration,
	logger *log.Logger,
) *Dispatcher {
	if window <= 0 {
		window = DefaultRecencyWindow
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Dispatcher{
		store:    store,
		jobs:     jobs,
		limiter:  limiter,
		mailer:   mailer,
		renderer: renderer,
		window:   window,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for the recency filter.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// Send emails every user with pending notifications and returns how many emails went out.
//
// Notifications are deleted only after their batch was sent or filtered out by the
// user's preferences. A failed send leaves the batch queued and is retried on the
// next iteration; a mailer that is not configured aborts the run.
func (d *Dispatcher) Send(ctx context.Context, progress chan<- ProgressUpdate) (int, error) {
	sent := 0
	for {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		if d.jobs != nil {
			if err := d.jobs.Process(ctx); err != nil {
				if ctx.Err() != nil {
					return sent, ctx.Err()
				}
				d.logger.Warn("job processing stopped", "err", err)
			}
		}
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return sent, err
			}
		}

		userID, err := d.store.Notifications.NextUser(ctx)
		if err != nil {
			return sent, err
		}
		if userID == "" {
			return sent, nil
		}

		user, pending, err := d.load(ctx, userID)
		if err != nil {
			return sent, err
		}

		ids := make([]int64, 0, len(pending))
		var releases []models.ReleaseListing
		for _, p := range pending {
			ids = append(ids, p.ID)
			if user != nil && !p.Release.Deleted && user.Accepts(&p.Release.ReleaseGroup, d.now(), d.window) {
				releases = append(releases, p.Release)
			}
		}

		logger := shared.WithLogger(d.logger, "user", userID)
		if len(releases) > 0 {
			email, err := d.renderer.Render(user, releases)
			if err != nil {
				return sent, err
			}
			if err := d.mailer.Send(ctx, email); err != nil {
				if errors.Is(err, shared.ErrMissingConfig) {
					return sent, err
				}
				logger.Warn("could not send notification email, will retry", "err", err)
				continue
			}
			sent++
			sendProgress(progress, notificationUpdate(sent, user, len(releases)))
			logger.Info("sent notification email", "to", user.Email, "releases", len(releases))
		} else {
			logger.Debug("no notifications to send", "pending", len(pending))
		}

		if _, err := d.store.Notifications.Delete(ctx, ids...); err != nil {
			return sent, err
		}
	}
}

// load reads the user and their pending batch in one transaction. user is nil
// when the account no longer exists.
func (d *Dispatcher) load(ctx context.Context, userID string) (*models.User, []models.PendingNotification, error) {
	var (
		user    *models.User
		pending []models.PendingNotification
	)
	err := d.store.InTx(ctx, func(tx *repositories.Store) error {
		u, err := tx.Users.Get(ctx, userID)
		switch {
		case errors.Is(err, shared.ErrUserNotFound):
		case err != nil:
			return err
		default:
			user = u
		}
		pending, err = tx.Notifications.PendingForUser(ctx, userID)
		return err
	})
	return user, pending, err
}
