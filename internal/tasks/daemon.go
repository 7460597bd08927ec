package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relwatch/internal/shared"
)

// Daemon alternates catalog sweeps and notification runs until its context ends.
type Daemon struct {
	walker     *Walker
	dispatcher *Dispatcher
	pause      time.Duration
	logger     *log.Logger
}

// NewDaemon creates a [Daemon] that sleeps pause between cycles.
func NewDaemon(walker *Walker, dispatcher *Dispatcher, pause time.Duration, logger *log.Logger) *Daemon {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Daemon{walker: walker, dispatcher: dispatcher, pause: pause, logger: logger}
}

// RunOnce performs one sweep followed by one notification run.
func (d *Daemon) RunOnce(ctx context.Context, progress chan<- ProgressUpdate) error {
	if _, err := d.walker.Sweep(ctx, progress); err != nil {
		return err
	}
	_, err := d.dispatcher.Send(ctx, progress)
	return err
}

// Run loops [Daemon.RunOnce] forever. Failed cycles are logged and the loop continues.
// It returns nil once ctx is cancelled.
func (d *Daemon) Run(ctx context.Context, progress chan<- ProgressUpdate) error {
	for cycle := 1; ; cycle++ {
		d.logger.Info("starting cycle", "cycle", cycle)
		if err := d.RunOnce(ctx, progress); err != nil {
			if ctx.Err() != nil {
				break
			}
			d.logger.Error("cycle failed", "cycle", cycle, "err", err)
		}

		if d.pause <= 0 {
			if ctx.Err() != nil {
				break
			}
			continue
		}
		select {
		case <-ctx.Done():
		case <-time.After(d.pause):
		}
		if ctx.Err() != nil {
			break
		}
	}

	d.logger.Info("daemon stopped")
	return nil
}
