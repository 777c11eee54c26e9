package preload

import (
	"encoding/json"
	"time"
)

const (
	// DefaultTTL is the validity window of a preload record. Records older
	// than this are treated as absent by every query until a cleanup pass
	// physically removes them.
	DefaultTTL = 72 * time.Hour

	// DefaultCommentCount is the snapshot value used when the real comment
	// count is unknown at record creation time.
	DefaultCommentCount = 500
)

// Record marks one video as preloaded. Timestamp is wall-clock milliseconds
// at creation/refresh time; JobID is empty for server-reconciled records.
type Record struct {
	Preloaded    bool   `json:"preloaded"`
	JobID        string `json:"job_id,omitempty"`
	Timestamp    int64  `json:"timestamp"`
	CommentCount int    `json:"comment_count"`
}

// Info is a Record merged with the separately-stored metadata payload.
type Info struct {
	Record
	Metadata json.RawMessage `json:"metadata,omitempty"`
}
