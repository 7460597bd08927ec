package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/relwatch/internal/shared"
	"github.com/desertthunder/relwatch/internal/tasks"
	"github.com/desertthunder/relwatch/internal/ui"
	"github.com/urfave/cli/v3"
)

// follow prints progress updates until the returned stop func is called.
// When quiet is set the channel is nil and updates are dropped.
func (r *Runner) follow(quiet bool) (chan tasks.ProgressUpdate, func()) {
	if quiet {
		return nil, func() {}
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ui.Follow(r.output, progressCh)
	}()

	return progressCh, func() {
		close(progressCh)
		<-done
	}
}

// DaemonRun alternates sweeps and notification runs until SIGINT or SIGTERM.
func (r *Runner) DaemonRun(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	progressCh, stop := r.follow(cmd.Bool("quiet"))
	e, err := r.buildEngine(progressCh)
	if err != nil {
		stop()
		return err
	}

	r.logger.Info("daemon started", "database", r.config.Database.Path, "pause", r.config.CyclePause(), "request_delay", r.rateLimiter().Delay())
	err = e.daemon.Run(ctx, progressCh)
	stop()

	if err != nil {
		return err
	}
	r.logger.Info("daemon stopped")
	return nil
}

// DaemonSweep runs one catalog sweep and prints a summary.
func (r *Runner) DaemonSweep(ctx context.Context, cmd *cli.Command) error {
	progressCh, stop := r.follow(cmd.Bool("quiet"))
	e, err := r.buildEngine(progressCh)
	if err != nil {
		stop()
		return err
	}

	result, err := e.walker.Sweep(ctx, progressCh)
	stop()
	if err != nil {
		return err
	}

	r.writePlainln("%s", ui.RenderSweep(result))
	return nil
}

// DaemonNotify runs one notification pass.
func (r *Runner) DaemonNotify(ctx context.Context, cmd *cli.Command) error {
	progressCh, stop := r.follow(cmd.Bool("quiet"))
	e, err := r.buildEngine(progressCh)
	if err != nil {
		stop()
		return err
	}

	sent, err := e.dispatcher.Send(ctx, progressCh)
	stop()
	if errors.Is(err, shared.ErrMissingConfig) {
		r.writePlain("%s\n", ui.Err("✗ Email is not configured, set [email] host and from in the config file"))
	}
	if err != nil {
		return err
	}

	r.writePlain("%s %d\n", ui.OK("✓ Emails sent:"), sent)
	return nil
}
