package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theresaanna/sentiment-analyzer-sub001/internal/api"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/dashboard"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/jobs"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/notify"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/preload"
)

type stubBackend struct {
	jobID     string
	cancelErr error
}

func (s *stubBackend) SubmitPreload(ctx context.Context, videoID string) (*api.SubmitJobResponse, error) {
	return &api.SubmitJobResponse{Success: true, JobID: s.jobID}, nil
}

func (s *stubBackend) SubmitAnalysis(ctx context.Context, videoID string) (*api.SubmitJobResponse, error) {
	return &api.SubmitJobResponse{Success: true, JobID: s.jobID}, nil
}

func (s *stubBackend) CancelJob(ctx context.Context, jobID string) error {
	return s.cancelErr
}

type fixture struct {
	server *Server
	store  *jobs.Store
	cache  *preload.Cache
	toasts *notify.Center
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cache := preload.NewCache(nil, nil)
	store := jobs.NewStore(nil, nil, cache)
	toasts := notify.NewCenter()
	service := dashboard.NewService(&stubBackend{jobID: "job-1"}, store, cache, toasts)
	return &fixture{
		server: NewServer(service, store, WithToastCenter(toasts)),
		store:  store,
		cache:  cache,
		toasts: toasts,
	}
}

func (f *fixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(""))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	body := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestServer_VideoStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.TrackJob("vid-1", "job-1")

	rec := f.do(t, http.MethodGet, "/api/videos/vid-1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "vid-1", body["video_id"])
	assert.Equal(t, false, body["preloaded"])
	job, ok := body["job"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "queued", job["status"])
}

func TestServer_PreloadAndPreloadedList(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/videos/vid-1/preload")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "job-1", body["job_id"])
	require.NotNil(t, f.store.VideoJobStatus("vid-1"))

	f.cache.SetPreloaded("vid-2", "", nil)
	rec = f.do(t, http.MethodGet, "/api/videos/preloaded")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, []interface{}{"vid-2"}, body["preloaded_videos"])
}

func TestServer_CancelVideoJob(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/videos/vid-1/preload")

	rec := f.do(t, http.MethodPost, "/api/videos/vid-1/cancel")
	require.Equal(t, http.StatusOK, rec.Code)

	status := f.store.VideoJobStatus("vid-1")
	require.NotNil(t, status)
	assert.Equal(t, jobs.StatusCancelled, status.Status)
}

func TestServer_ListAndClearJobs(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	completed := jobs.StatusCompleted
	f.store.UpdateJobStatus("vid-done", jobs.StatusUpdate{Status: &completed})
	f.store.TrackJob("vid-live", "job-live")

	rec := f.do(t, http.MethodGet, "/api/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	jobsMap, ok := body["jobs"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, jobsMap, 2)

	rec = f.do(t, http.MethodPost, "/api/jobs/clear-completed")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, float64(1), body["removed"])
	assert.Nil(t, f.store.VideoJobStatus("vid-done"))
	assert.NotNil(t, f.store.VideoJobStatus("vid-live"))
}

func TestServer_Notifications(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	toast := f.toasts.Info("hello")

	rec := f.do(t, http.MethodGet, "/api/notifications")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	list, ok := body["notifications"].([]interface{})
	require.True(t, ok)
	require.Len(t, list, 1)

	rec = f.do(t, http.MethodDelete, "/api/notifications/"+toast.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.toasts.Recent())
}

func TestServer_MethodAndPathErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/videos/vid-1/status")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/videos/vid-1/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/videos/")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/videos/vid-none/cancel")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
}
