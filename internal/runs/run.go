// Package runs tracks pipeline runs by identifier for status polling.
package runs

import (
	"time"

	"reelscope/internal/media"
	"reelscope/internal/platform"
	"reelscope/internal/stage"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Terminal reports whether the status permits no further mutation.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Run is the poll record for one pipeline execution. Records handed out by
// the registry are copies; only Registry.Update changes stored state.
type Run struct {
	ID          string                 `json:"id"`
	URL         string                 `json:"url"`
	Platform    platform.Platform      `json:"platform"`
	Status      Status                 `json:"status"`
	Step        stage.Step             `json:"step"`
	Progress    int                    `json:"progress"`
	Message     string                 `json:"message"`
	Result      *media.AggregateResult `json:"result"`
	Error       string                 `json:"error"`
	Notes       []string               `json:"notes,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   time.Time              `json:"started_at,omitzero"`
	CompletedAt time.Time              `json:"completed_at,omitzero"`
}

// Duration is the wall-clock time between start and completion, or zero while
// the run has not finished.
func (r Run) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

func (r Run) clone() Run {
	out := r
	out.Notes = append([]string(nil), r.Notes...)
	return out
}
