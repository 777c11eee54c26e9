package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL, Timeout: 5})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestClient_ListJobStatuses(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/jobs/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jobs": []map[string]interface{}{
				{
					"job_id":        "job-1",
					"video_id":      "vid-1",
					"status":        "running",
					"progress":      42,
					"job_type":      "preload",
					"comment_count": 1200,
					"video_metadata": map[string]string{
						"title": "some video",
					},
				},
			},
		})
	})

	resp, err := client.ListJobStatuses(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Jobs, 1)

	job := resp.Jobs[0]
	assert.Equal(t, "job-1", job.JobID)
	assert.Equal(t, "vid-1", job.VideoID)
	assert.Equal(t, "running", job.Status)
	assert.Equal(t, 42, job.Progress)
	assert.Equal(t, "preload", job.JobType)
	assert.Equal(t, 1200, job.CommentCount)
	assert.JSONEq(t, `{"title":"some video"}`, string(job.VideoMetadata))
}

func TestClient_SubmitPreload(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/jobs/preload", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "vid-1", payload["video_id"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"job_id":  "job-9",
		})
	})

	resp, err := client.SubmitPreload(context.Background(), "vid-1")
	require.NoError(t, err)
	assert.Equal(t, "job-9", resp.JobID)
}

func TestClient_SubmitRefused(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "video not found",
		})
	})

	_, err := client.SubmitAnalysis(context.Background(), "vid-404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "video not found")
}

func TestClient_CancelJob(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs/job-1/cancel", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})

	require.NoError(t, client.CancelJob(context.Background(), "job-1"))
}

func TestClient_ListPreloadedVideos(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/videos/preloaded", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"preloaded_videos": []map[string]interface{}{
				{"video_id": "vid-1"},
				{"video_id": "vid-2", "metadata": map[string]string{"title": "b"}},
			},
		})
	})

	videos, err := client.ListPreloadedVideos(context.Background())
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "vid-1", videos[0].VideoID)
	assert.JSONEq(t, `{"title":"b"}`, string(videos[1].Metadata))
}

func TestClient_UnexpectedStatus(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.ListJobStatuses(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestClient_MalformedResponse(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})

	_, err := client.ListJobStatuses(context.Background())
	require.Error(t, err)
}
