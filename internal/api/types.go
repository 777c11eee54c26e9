package api

import "encoding/json"

// JobStatusEntry is one job in the status listing response. Fields beyond
// job_id/video_id/status/progress are opaque passthrough for consumers.
type JobStatusEntry struct {
	JobID         string          `json:"job_id"`
	VideoID       string          `json:"video_id"`
	Status        string          `json:"status"`
	Progress      int             `json:"progress"`
	JobType       string          `json:"job_type"`
	CommentCount  int             `json:"comment_count"`
	VideoMetadata json.RawMessage `json:"video_metadata,omitempty"`
}

type JobStatusListResponse struct {
	Jobs []JobStatusEntry `json:"jobs"`
}

type SubmitJobResponse struct {
	Success  bool            `json:"success"`
	JobID    string          `json:"job_id"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type CancelJobResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PreloadedVideo is one entry of the authoritative preloaded-videos listing.
type PreloadedVideo struct {
	VideoID  string          `json:"video_id"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type PreloadedVideosResponse struct {
	Success         bool             `json:"success"`
	PreloadedVideos []PreloadedVideo `json:"preloaded_videos"`
}
