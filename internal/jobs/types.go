package jobs

import "encoding/json"

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// NormalizeStatus folds server spellings into the canonical set. The backend
// reports "running" for in-flight jobs; it is the same state as processing.
func NormalizeStatus(s string) Status {
	switch s {
	case "running":
		return StatusProcessing
	case "pending":
		return StatusQueued
	default:
		return Status(s)
	}
}

// Terminal reports whether no further transitions can occur. Terminal
// states are absorbing; retry means tracking a brand-new job id.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// JobType is an opaque passthrough from the backend. Only preload is
// interpreted here (completed preload jobs feed the preload cache).
type JobType string

const (
	JobTypePreload     JobType = "preload"
	JobTypeAnalysis    JobType = "analysis"
	JobTypeChannelSync JobType = "channel_sync"
)

// StatusRecord is the last-known job state for one video id. A video has at
// most one record; tracking a new job for the same video overwrites it.
type StatusRecord struct {
	JobID        string          `json:"job_id"`
	Status       Status          `json:"status"`
	Progress     int             `json:"progress"`
	Timestamp    int64           `json:"timestamp"`
	JobType      JobType         `json:"job_type,omitempty"`
	CommentCount int             `json:"comment_count,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// StatusUpdate is a shallow-merge patch for UpdateJobStatus. Nil fields are
// left untouched; the record timestamp is always refreshed.
type StatusUpdate struct {
	JobID        *string
	Status       *Status
	Progress     *int
	JobType      *JobType
	CommentCount *int
	Metadata     json.RawMessage
}
