package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/desertthunder/relwatch/internal/tasks"
)

// RenderProgress formats one progress event as a single styled line.
func RenderProgress(update tasks.ProgressUpdate) string {
	var phase string
	switch update.Phase {
	case tasks.SweepArtists:
		if update.Total > 0 {
			phase = fmt.Sprintf("[%d/%d]", update.Step, update.Total)
		} else {
			phase = fmt.Sprintf("[%d]", update.Step)
		}
		return fmt.Sprintf("%s %s", Help(phase), update.Message)
	case tasks.MergeArtist:
		return Warn("merge  ") + update.Message
	case tasks.RefreshArtist:
		return Help("refresh") + " " + update.Message
	case tasks.ReconcileArtist:
		if r, ok := update.Data.(tasks.ReconcileResult); ok && r.Created+r.Updated+r.Deleted == 0 {
			return Help("  no changes")
		}
		return OK("  " + update.Message)
	case tasks.ProcessJobs:
		return Help("job    ") + " " + update.Message
	case tasks.SendNotifications:
		return OK("✓ ") + update.Message
	default:
		return update.Message
	}
}

// Follow prints updates until the channel is closed.
func Follow(w io.Writer, updates <-chan tasks.ProgressUpdate) {
	for update := range updates {
		fmt.Fprintln(w, RenderProgress(update))
	}
}

// RenderSweep summarizes a finished sweep.
func RenderSweep(result tasks.SweepResult) string {
	var b strings.Builder

	b.WriteString(OK("✓ Sweep Complete!"))
	fmt.Fprintf(&b, "\n\nArtists checked: %d", result.Artists)
	fmt.Fprintf(&b, "\nRelease groups: %d created, %d updated, %d deleted",
		result.Releases.Created, result.Releases.Updated, result.Releases.Deleted)
	if result.Refreshed > 0 {
		fmt.Fprintf(&b, "\nArtists refreshed: %d", result.Refreshed)
	}
	if result.Merged > 0 {
		fmt.Fprintf(&b, "\nArtists merged: %d", result.Merged)
	}
	if result.Skipped > 0 {
		fmt.Fprintf(&b, "\n%s", Warn(fmt.Sprintf("Skipped %d artists", result.Skipped)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(&b, "\n%s", Err(fmt.Sprintf("Failed to check %d artists", result.Failed)))
	}

	return b.String()
}
