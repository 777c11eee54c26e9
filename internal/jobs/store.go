package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theresaanna/sentiment-analyzer-sub001/internal/api"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/persistence"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/preload"
	"github.com/theresaanna/sentiment-analyzer-sub001/pkg/log"
)

// DefaultPollInterval is the fixed cadence of the status poll while any
// tracked job is non-terminal.
const DefaultPollInterval = 3 * time.Second

const statusesKey = "job_statuses"

// StatusLister fetches the backend's job-status listing.
type StatusLister interface {
	ListJobStatuses(ctx context.Context) (*api.JobStatusListResponse, error)
}

// PreloadSink receives completed preload jobs.
type PreloadSink interface {
	SetPreloaded(videoID, jobID string, metadata json.RawMessage) preload.Record
}

// Store maps video id → last-known job status and owns the polling loop.
// The active set (job ids considered non-terminal) drives whether polling
// runs; the server response is authoritative for it on every poll. All
// returned records are snapshots.
type Store struct {
	mu       sync.RWMutex
	statuses map[string]*StatusRecord
	active   map[string]struct{}
	loopStop chan struct{}
	closed   bool

	kv       persistence.KeyValueStore
	client   StatusLister
	preloads PreloadSink
	interval time.Duration
	now      func() time.Time
	polling  atomic.Bool
}

type Option func(*Store)

// WithPollInterval overrides the poll cadence, for tests.
func WithPollInterval(interval time.Duration) Option {
	return func(s *Store) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore restores any persisted statuses from kv (nil disables
// persistence), rederives the active set from the non-terminal ones, and
// resumes polling if that set is non-empty. client may be nil (polling then
// logs and skips); preloads may be nil (completions are not forwarded).
func NewStore(kv persistence.KeyValueStore, client StatusLister, preloads PreloadSink, opts ...Option) *Store {
	s := &Store{
		statuses: make(map[string]*StatusRecord),
		active:   make(map[string]struct{}),
		kv:       kv,
		client:   client,
		preloads: preloads,
		interval: DefaultPollInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hydrate()
	return s
}

func (s *Store) hydrate() {
	if s.kv == nil {
		return
	}
	raw, ok := s.kv.Get(statusesKey)
	if !ok {
		return
	}
	loaded := make(map[string]*StatusRecord)
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		log.Warn("Discarding malformed job statuses: %v", err)
		return
	}

	s.mu.Lock()
	for videoID, rec := range loaded {
		if rec == nil || videoID == "" {
			continue
		}
		s.statuses[videoID] = rec
		if rec.JobID != "" && !rec.Status.Terminal() {
			s.active[rec.JobID] = struct{}{}
		}
	}
	s.maybeStartLoopLocked()
	s.mu.Unlock()
}

// TrackJob registers a client-initiated job for videoID with status queued
// and progress 0. Tracking a different job id for the same video replaces
// the record (the retry path). Starts the polling loop when the active set
// goes from empty to non-empty.
func (s *Store) TrackJob(videoID, jobID string) {
	if videoID == "" || jobID == "" {
		return
	}

	s.mu.Lock()
	s.statuses[videoID] = &StatusRecord{
		JobID:     jobID,
		Status:    StatusQueued,
		Progress:  0,
		Timestamp: s.now().UnixMilli(),
	}
	s.active[jobID] = struct{}{}
	s.persistLocked()
	s.maybeStartLoopLocked()
	s.mu.Unlock()

	log.Debug("Tracking job %s for video %s", jobID, videoID)
}

// UpdateJobStatus shallow-merges update into the record for videoID,
// creating one if absent, and refreshes the timestamp. This is the local
// optimistic-update path; poll application replaces records wholesale
// instead.
func (s *Store) UpdateJobStatus(videoID string, update StatusUpdate) {
	if videoID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.statuses[videoID]
	if !ok {
		rec = &StatusRecord{Status: StatusQueued}
		s.statuses[videoID] = rec
	}
	if update.JobID != nil {
		rec.JobID = *update.JobID
	}
	if update.Status != nil {
		rec.Status = *update.Status
	}
	if update.Progress != nil {
		rec.Progress = *update.Progress
	}
	if update.JobType != nil {
		rec.JobType = *update.JobType
	}
	if update.CommentCount != nil {
		rec.CommentCount = *update.CommentCount
	}
	if len(update.Metadata) > 0 {
		rec.Metadata = update.Metadata
	}
	rec.Timestamp = s.now().UnixMilli()
	s.persistLocked()
}

// RemoveJob deletes the record for videoID unconditionally. The active set
// is not touched: it is rederived from the next poll response, so a removed
// job the server still reports running will reappear.
func (s *Store) RemoveJob(videoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.statuses[videoID]; !ok {
		return
	}
	delete(s.statuses, videoID)
	s.persistLocked()
}

// ClearCompletedJobs deletes every terminal record in one pass and reports
// how many were removed.
func (s *Store) ClearCompletedJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for videoID, rec := range s.statuses {
		if rec.Status.Terminal() {
			delete(s.statuses, videoID)
			removed++
		}
	}
	if removed > 0 {
		s.persistLocked()
	}
	return removed
}

// VideoJobStatus returns a snapshot of the record for videoID, or nil.
func (s *Store) VideoJobStatus(videoID string) *StatusRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.statuses[videoID]
	if !ok {
		return nil
	}
	snapshot := *rec
	return &snapshot
}

// JobStatuses returns a snapshot of every record keyed by video id.
func (s *Store) JobStatuses() map[string]StatusRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ret := make(map[string]StatusRecord, len(s.statuses))
	for videoID, rec := range s.statuses {
		ret[videoID] = *rec
	}
	return ret
}

// IsVideoPreloaded reports whether the local record shows a completed
// preload job. This is the job-store view only; consumers usually OR it
// with the preload cache's own IsPreloaded.
func (s *Store) IsVideoPreloaded(videoID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.statuses[videoID]
	return ok && rec.Status == StatusCompleted && rec.JobType == JobTypePreload
}

// ActiveJobs returns the job ids currently considered non-terminal.
func (s *Store) ActiveJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	return ids
}

// InitialLoad hydrates state from the backend once at startup. Records are
// applied exactly as a poll would, but the active set is unioned with the
// existing one so jobs tracked locally before the response lands keep
// polling.
func (s *Store) InitialLoad(ctx context.Context) {
	if s.client == nil {
		return
	}
	resp, err := s.client.ListJobStatuses(ctx)
	if err != nil {
		log.Warn("Initial job status load failed: %v", err)
		return
	}
	s.applyStatusList(resp, false)
}

// Stop cancels the polling timer and marks the store closed. Safe to call
// repeatedly or before any poll started. A poll already in flight completes
// and its result is discarded.
func (s *Store) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.loopStop != nil {
		close(s.loopStop)
		s.loopStop = nil
	}
}

// maybeStartLoopLocked starts the polling loop when there is something to
// poll and no loop is running yet. Lazy start keeps idle network usage at
// zero.
func (s *Store) maybeStartLoopLocked() {
	if s.closed || s.loopStop != nil || len(s.active) == 0 || s.client == nil {
		return
	}
	stop := make(chan struct{})
	s.loopStop = stop
	go s.runLoop(stop)
}

func (s *Store) runLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.pollOnce(context.Background())

			s.mu.Lock()
			if len(s.active) == 0 || s.closed {
				if s.loopStop == stop {
					s.loopStop = nil
				}
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
		}
	}
}

// pollOnce runs one poll cycle under single-flight discipline: a tick that
// finds a previous poll still in flight is skipped, not queued.
func (s *Store) pollOnce(ctx context.Context) {
	if !s.polling.CompareAndSwap(false, true) {
		log.Debug("Skipping poll: previous request still in flight")
		return
	}
	defer s.polling.Store(false)

	resp, err := s.client.ListJobStatuses(ctx)
	if err != nil {
		// Transient; prior state stays intact until the next tick.
		log.Warn("Job status poll failed: %v", err)
		return
	}
	s.applyStatusList(resp, true)
}

// applyStatusList merges a listing response. Records for returned jobs are
// replaced wholesale (not field-merged). With replaceActive the freshly
// computed active set supersedes the old one: jobs absent from the response
// are dropped from "active" because the server is authoritative for
// liveness. Completed preload jobs are forwarded to the preload cache.
func (s *Store) applyStatusList(resp *api.JobStatusListResponse, replaceActive bool) {
	if resp == nil {
		return
	}

	type completion struct {
		videoID  string
		jobID    string
		metadata json.RawMessage
	}
	var completed []completion

	s.mu.Lock()
	if s.closed {
		// Torn down while the request was in flight; discard.
		s.mu.Unlock()
		return
	}

	fresh := make(map[string]struct{})
	now := s.now().UnixMilli()
	for _, job := range resp.Jobs {
		if job.VideoID == "" {
			continue
		}
		status := NormalizeStatus(job.Status)
		if job.JobID != "" && !status.Terminal() {
			fresh[job.JobID] = struct{}{}
		}

		prev := s.statuses[job.VideoID]
		rec := &StatusRecord{
			JobID:        job.JobID,
			Status:       status,
			Progress:     job.Progress,
			Timestamp:    now,
			JobType:      JobType(job.JobType),
			CommentCount: job.CommentCount,
			Metadata:     job.VideoMetadata,
		}
		s.statuses[job.VideoID] = rec

		if status == StatusCompleted && rec.JobType == JobTypePreload &&
			(prev == nil || prev.Status != StatusCompleted) {
			completed = append(completed, completion{
				videoID:  job.VideoID,
				jobID:    job.JobID,
				metadata: job.VideoMetadata,
			})
		}
	}

	if replaceActive {
		s.active = fresh
	} else {
		for id := range fresh {
			s.active[id] = struct{}{}
		}
		s.maybeStartLoopLocked()
	}
	s.persistLocked()
	s.mu.Unlock()

	if s.preloads != nil {
		for _, c := range completed {
			s.preloads.SetPreloaded(c.videoID, c.jobID, c.metadata)
			log.Info("Preload completed for video %s (job %s)", c.videoID, c.jobID)
		}
	}
}

func (s *Store) persistLocked() {
	if s.kv == nil {
		return
	}
	data, err := json.Marshal(s.statuses)
	if err != nil {
		log.Error("Failed to encode job statuses: %v", err)
		return
	}
	s.kv.Set(statusesKey, string(data))
}
