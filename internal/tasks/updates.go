package tasks

import (
	"fmt"

	"github.com/desertthunder/relwatch/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	SweepArtists Phase = iota
	RefreshArtist
	MergeArtist
	ReconcileArtist
	ProcessJobs
	SendNotifications
)

func (p Phase) String() string {
	switch p {
	case SweepArtists:
		return "sweep_artists"
	case RefreshArtist:
		return "refresh_artist"
	case MergeArtist:
		return "merge_artist"
	case ReconcileArtist:
		return "reconcile_artist"
	case ProcessJobs:
		return "process_jobs"
	case SendNotifications:
		return "send_notifications"
	default:
		return ""
	}
}

// sendProgress delivers an update without blocking. Updates are dropped when nobody is listening.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func sweepUpdate(step, total int, artist *models.Artist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SweepArtists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Checking %s (%s)", artist.Name, artist.MBID),
		Data:    artist,
	}
}

func mergeUpdate(step int, stale, canonical *models.Artist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MergeArtist,
		Step:    step,
		Message: fmt.Sprintf("Merging %s into %s", stale.MBID, canonical.MBID),
		Data:    canonical,
	}
}

func reconcileUpdate(step int, artist *models.Artist, result ReconcileResult) ProgressUpdate {
	return ProgressUpdate{
		Phase: ReconcileArtist,
		Step:  step,
		Message: fmt.Sprintf("%s: %d created, %d updated, %d deleted",
			artist.Name, result.Created, result.Updated, result.Deleted),
		Data: result,
	}
}

func notificationUpdate(sent int, user *models.User, releases int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SendNotifications,
		Step:    sent,
		Message: fmt.Sprintf("Emailed %s about %d release(s)", user.Username, releases),
		Data:    user.ID,
	}
}
