package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/relwatch/internal/shared"
)

// JobKind identifies what a queued [Job] does.
type JobKind string

const (
	JobAddArtist        JobKind = "add_artist"
	JobAddReleaseGroups JobKind = "add_release_groups"
	JobImportLastFM     JobKind = "import_lastfm"
	JobGetCover         JobKind = "get_cover"
)

// ParseJobKind validates a kind read from the queue or the command line.
func ParseJobKind(s string) (JobKind, bool) {
	switch k := JobKind(s); k {
	case JobAddArtist, JobAddReleaseGroups, JobImportLastFM, JobGetCover:
		return k, true
	}
	return "", false
}

// Job is a durable unit of work consumed in id order.
// UserID is empty for system jobs.
type Job struct {
	ID        int64
	Kind      JobKind
	UserID    string
	Payload   string
	CreatedAt time.Time
}

// Validate implements [Model].
func (j *Job) Validate() error {
	if _, ok := ParseJobKind(string(j.Kind)); !ok {
		return fmt.Errorf("%w: job kind %q", shared.ErrInvalidInput, j.Kind)
	}
	if j.Kind == JobAddArtist && j.UserID == "" {
		return fmt.Errorf("%w: add_artist requires a user", shared.ErrInvalidInput)
	}
	return nil
}

// ImportPeriods lists the accepted Last.fm chart periods.
var ImportPeriods = []string{"overall", "12month", "6month", "3month", "7day"}

// MaxImportCount caps how many artists one import may subscribe.
const MaxImportCount = 500

// ImportRequest is the payload of an import_lastfm job.
type ImportRequest struct {
	Username string `json:"username"`
	Count    int    `json:"count"`
	Period   string `json:"period"`
}

// Validate clamps Count and checks the period.
func (r *ImportRequest) Validate() error {
	if r.Username == "" {
		return fmt.Errorf("%w: last.fm username is required", shared.ErrInvalidInput)
	}
	if r.Count <= 0 || r.Count > MaxImportCount {
		r.Count = MaxImportCount
	}
	if r.Period == "" {
		r.Period = "overall"
	}
	for _, p := range ImportPeriods {
		if p == r.Period {
			return nil
		}
	}
	return fmt.Errorf("%w: period %q", shared.ErrInvalidInput, r.Period)
}

// Encode serializes the request as a job payload.
func (r ImportRequest) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeImportRequest parses and validates a job payload.
func DecodeImportRequest(payload string) (*ImportRequest, error) {
	var r ImportRequest
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("%w: import payload: %v", shared.ErrInvalidInput, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
