package dashboard

import (
	"context"
	"fmt"

	"github.com/theresaanna/sentiment-analyzer-sub001/internal/api"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/jobs"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/notify"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/preload"
	"github.com/theresaanna/sentiment-analyzer-sub001/pkg/log"
)

// JobSubmitter is the backend surface the dashboard drives jobs through.
type JobSubmitter interface {
	SubmitPreload(ctx context.Context, videoID string) (*api.SubmitJobResponse, error)
	SubmitAnalysis(ctx context.Context, videoID string) (*api.SubmitJobResponse, error)
	CancelJob(ctx context.Context, jobID string) error
}

// Service is the consumer layer over the job store and preload cache: it
// submits jobs, registers them for tracking, and answers the derived
// questions the UI asks.
type Service struct {
	backend  JobSubmitter
	jobs     *jobs.Store
	preloads *preload.Cache
	toasts   *notify.Center
}

func NewService(backend JobSubmitter, jobStore *jobs.Store, preloads *preload.Cache, toasts *notify.Center) *Service {
	return &Service{
		backend:  backend,
		jobs:     jobStore,
		preloads: preloads,
		toasts:   toasts,
	}
}

// VideoStatus is the combined per-video view served to the UI.
type VideoStatus struct {
	VideoID   string             `json:"video_id"`
	Preloaded bool               `json:"preloaded"`
	Job       *jobs.StatusRecord `json:"job,omitempty"`
	Preload   *preload.Info      `json:"preload,omitempty"`
}

// IsPreloaded ORs the preload cache's TTL view with the job store's
// completed-preload view.
func (s *Service) IsPreloaded(videoID string) bool {
	return s.preloads.IsPreloaded(videoID) || s.jobs.IsVideoPreloaded(videoID)
}

// VideoStatus returns the combined status snapshot for videoID.
func (s *Service) VideoStatus(videoID string) VideoStatus {
	return VideoStatus{
		VideoID:   videoID,
		Preloaded: s.IsPreloaded(videoID),
		Job:       s.jobs.VideoJobStatus(videoID),
		Preload:   s.preloads.GetPreloadInfo(videoID),
	}
}

// PreloadVideo submits a comment-preload job for videoID and tracks it.
// Returns the assigned job id, or empty when the video is already preloaded.
func (s *Service) PreloadVideo(ctx context.Context, videoID string) (string, error) {
	if s.IsPreloaded(videoID) {
		s.toast(notify.LevelInfo, "Comments for %s are already preloaded", videoID)
		return "", nil
	}

	resp, err := s.backend.SubmitPreload(ctx, videoID)
	if err != nil {
		s.toast(notify.LevelError, "Failed to start preload for %s", videoID)
		return "", fmt.Errorf("preload video %s: %w", videoID, err)
	}

	s.track(videoID, resp.JobID, jobs.JobTypePreload)
	s.toast(notify.LevelSuccess, "Preloading comments for %s", videoID)
	return resp.JobID, nil
}

// AnalyzeVideo submits a sentiment-analysis job for videoID and tracks it.
func (s *Service) AnalyzeVideo(ctx context.Context, videoID string) (string, error) {
	resp, err := s.backend.SubmitAnalysis(ctx, videoID)
	if err != nil {
		s.toast(notify.LevelError, "Failed to start analysis for %s", videoID)
		return "", fmt.Errorf("analyze video %s: %w", videoID, err)
	}

	s.track(videoID, resp.JobID, jobs.JobTypeAnalysis)
	s.toast(notify.LevelSuccess, "Analyzing sentiment for %s", videoID)
	return resp.JobID, nil
}

// CancelVideoJob cancels the tracked job for videoID. The cancelled status
// is applied optimistically; if the backend refuses, the previous record is
// restored (inverse transition), since the next poll may be seconds away.
func (s *Service) CancelVideoJob(ctx context.Context, videoID string) error {
	prev := s.jobs.VideoJobStatus(videoID)
	if prev == nil || prev.JobID == "" {
		return fmt.Errorf("no tracked job for video %s", videoID)
	}
	if prev.Status.Terminal() {
		return fmt.Errorf("job %s for video %s already %s", prev.JobID, videoID, prev.Status)
	}

	cancelled := jobs.StatusCancelled
	s.jobs.UpdateJobStatus(videoID, jobs.StatusUpdate{Status: &cancelled})

	if err := s.backend.CancelJob(ctx, prev.JobID); err != nil {
		s.jobs.UpdateJobStatus(videoID, jobs.StatusUpdate{
			JobID:    &prev.JobID,
			Status:   &prev.Status,
			Progress: &prev.Progress,
		})
		s.toast(notify.LevelError, "Failed to cancel job for %s", videoID)
		return fmt.Errorf("cancel job for video %s: %w", videoID, err)
	}

	s.toast(notify.LevelInfo, "Cancelled job for %s", videoID)
	return nil
}

// PreloadedVideoIDs returns the currently valid preloaded video ids.
func (s *Service) PreloadedVideoIDs() []string {
	return s.preloads.AllPreloadedIDs()
}

func (s *Service) track(videoID, jobID string, jobType jobs.JobType) {
	s.jobs.TrackJob(videoID, jobID)
	s.jobs.UpdateJobStatus(videoID, jobs.StatusUpdate{JobType: &jobType})
}

func (s *Service) toast(level notify.Level, format string, args ...interface{}) {
	if s.toasts == nil {
		return
	}
	s.toasts.Push(level, fmt.Sprintf(format, args...))
	log.Debug(format, args...)
}
