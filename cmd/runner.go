package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relwatch/internal/repositories"
	"github.com/desertthunder/relwatch/internal/services"
	"github.com/desertthunder/relwatch/internal/shared"
	"github.com/desertthunder/relwatch/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database and upstream clients are opened on first use so that commands
// like "setup config" work without either.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db       *sql.DB
	store    *repositories.Store
	metadata services.MetadataClient
	library  services.Library
	mailer   services.Mailer
	covers   services.CoverFetcher
	limiter  *services.RateLimiter
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Store and the upstream clients are optional. When nil they are built from Config,
// except Covers: without one, get_cover jobs are acknowledged and dropped.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Store      *repositories.Store
	Metadata   services.MetadataClient
	Library    services.Library
	Mailer     services.Mailer
	Covers     services.CoverFetcher
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.RequestTimeout()}
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		store:      opts.Store,
		metadata:   opts.Metadata,
		library:    opts.Library,
		mailer:     opts.Mailer,
		covers:     opts.Covers,
	}
}

// Before loads the file named by --config when it exists, otherwise the
// built-in defaults stay in effect.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path == "" {
		return ctx, nil
	}

	if _, err := os.Stat(path); err != nil {
		if cmd.IsSet("config") {
			r.logger.Warn("config file not found, using defaults", "path", path)
		}
		return ctx, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	r.config = config
	shared.SetLogLevel(r.logger, config.LogLevel())
	return ctx, nil
}

// Close releases the database opened by the runner, if any.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db, r.store = nil, nil
	return err
}

func (r *Runner) openStore() (*repositories.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.db = db
	r.store = repositories.NewStore(db)
	return r.store, nil
}

func (r *Runner) breaker(name string) *services.Breaker {
	return services.NewBreaker(services.BreakerSettings{
		Name:             name,
		FailureThreshold: r.config.Breaker.FailureThreshold,
		OpenTimeout:      r.config.BreakerTimeout(),
	}, shared.WithLogger(r.logger, "breaker", name))
}

// rateLimiter returns the process-wide catalog limiter shared by the metadata
// client and the notification dispatcher.
func (r *Runner) rateLimiter() *services.RateLimiter {
	if r.limiter == nil {
		r.limiter = services.NewRateLimiter(r.config.RequestDelay())
	}
	return r.limiter
}

func (r *Runner) metadataClient() services.MetadataClient {
	if r.metadata == nil {
		cfg := r.config.MusicBrainz
		r.metadata = services.NewMusicBrainzClient(
			cfg.BaseURL, cfg.UserAgent, r.httpClient, r.rateLimiter(), r.breaker("musicbrainz"),
			shared.WithLogger(r.logger, "service", "musicbrainz"),
		)
	}
	return r.metadata
}

func (r *Runner) libraryClient() services.Library {
	if r.library == nil && r.config.LastFM.APIKey != "" {
		r.library = services.NewLastFMClient(
			r.config.LastFM.BaseURL, r.config.LastFM.APIKey, r.httpClient, r.breaker("lastfm"),
			shared.WithLogger(r.logger, "service", "lastfm"),
		)
	}
	return r.library
}

func (r *Runner) emailer() services.Mailer {
	if r.mailer == nil {
		r.mailer = services.NewSMTPMailer(r.config.Email)
	}
	return r.mailer
}

// engine wires the sync components around one store.
type engine struct {
	store      *repositories.Store
	resolver   *tasks.Resolver
	jobs       *tasks.JobProcessor
	walker     *tasks.Walker
	dispatcher *tasks.Dispatcher
	daemon     *tasks.Daemon
}

// buildEngine wires the sync components. progress may be nil.
func (r *Runner) buildEngine(progress chan<- tasks.ProgressUpdate) (*engine, error) {
	store, err := r.openStore()
	if err != nil {
		return nil, err
	}

	cfg := r.config.Daemon
	client := r.metadataClient()

	resolver := tasks.NewResolver(store, client, r.config.BlacklistSet(), shared.WithLogger(r.logger, "task", "resolve"))
	reconciler := tasks.NewReconciler(store, client, cfg.ReleasePageSize, shared.WithLogger(r.logger, "task", "reconcile"))

	opts := []tasks.JobOption{
		tasks.WithSearchLimit(cfg.SearchLimit),
		tasks.WithReleasePageSize(cfg.ReleasePageSize),
		tasks.WithImportPageSize(cfg.ImportPageSize),
	}
	if library := r.libraryClient(); library != nil {
		opts = append(opts, tasks.WithLibrary(library))
	}
	if r.covers != nil {
		opts = append(opts, tasks.WithCoverFetcher(r.covers))
	}
	if progress != nil {
		opts = append(opts, tasks.WithJobProgress(progress))
	}
	jobs := tasks.NewJobProcessor(store, client, resolver, shared.WithLogger(r.logger, "task", "jobs"), opts...)

	walker := tasks.NewWalker(
		store, client, resolver, reconciler, jobs,
		cfg.RefreshArtists, cfg.ArtistRefreshDay,
		shared.WithLogger(r.logger, "task", "sweep"),
	)

	renderer, err := services.NewReleaseRenderer(r.config.Email.SubjectPrefix, r.config.Email.SiteURL)
	if err != nil {
		return nil, err
	}
	dispatcher := tasks.NewDispatcher(
		store, jobs, r.rateLimiter(), r.emailer(), renderer, r.config.RecencyWindow(),
		shared.WithLogger(r.logger, "task", "notify"),
	)

	return &engine{
		store:      store,
		resolver:   resolver,
		jobs:       jobs,
		walker:     walker,
		dispatcher: dispatcher,
		daemon:     tasks.NewDaemon(walker, dispatcher, r.config.CyclePause(), shared.WithLogger(r.logger, "task", "daemon")),
	}, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, daemonCommand, jobsCommand, artistsCommand, releasesCommand, usersCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
