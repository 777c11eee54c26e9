package preload

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/theresaanna/sentiment-analyzer-sub001/internal/api"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/persistence"
	"github.com/theresaanna/sentiment-analyzer-sub001/pkg/log"
)

const (
	recordsKey  = "preload_records"
	metadataKey = "preload_metadata"
)

// ServerLister fetches the authoritative preloaded-videos listing.
type ServerLister interface {
	ListPreloadedVideos(ctx context.Context) ([]api.PreloadedVideo, error)
}

// Cache is the in-memory map of video id → preload record, backed by a
// KeyValueStore. Expiry is soft on read (TTL filter) and hard on
// CleanExpired; the server listing is reconciled in via SyncWithServer.
type Cache struct {
	mu       sync.RWMutex
	records  map[string]*Record
	metadata map[string]json.RawMessage
	order    []string

	kv     persistence.KeyValueStore
	lister ServerLister
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Cache)

// WithTTL overrides the record validity window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache loads any persisted state from kv (nil kv disables persistence),
// drops records that already fail the TTL check, and writes the cleaned set
// back once. lister may be nil; SyncWithServer is then a logged no-op.
func NewCache(kv persistence.KeyValueStore, lister ServerLister, opts ...Option) *Cache {
	c := &Cache{
		records:  make(map[string]*Record),
		metadata: make(map[string]json.RawMessage),
		kv:       kv,
		lister:   lister,
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.hydrate()
	return c
}

func (c *Cache) hydrate() {
	if c.kv == nil {
		return
	}

	loaded := make(map[string]*Record)
	if raw, ok := c.kv.Get(recordsKey); ok {
		if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
			// Malformed blob means no data, not a failure.
			log.Warn("Discarding malformed preload records: %v", err)
			loaded = make(map[string]*Record)
		}
	}
	meta := make(map[string]json.RawMessage)
	if raw, ok := c.kv.Get(metadataKey); ok {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			log.Warn("Discarding malformed preload metadata: %v", err)
			meta = make(map[string]json.RawMessage)
		}
	}

	dropped := 0
	for id, rec := range loaded {
		if rec == nil || !c.validLocked(rec) {
			dropped++
			delete(meta, id)
			continue
		}
		c.records[id] = rec
		c.order = append(c.order, id)
		if m, ok := meta[id]; ok {
			c.metadata[id] = m
		}
	}
	if dropped > 0 {
		log.Info("Dropped %d expired preload records at startup", dropped)
		c.persistLocked()
	}
}

// validLocked reports whether rec is within its TTL. Callers hold the lock
// or own the record exclusively.
func (c *Cache) validLocked(rec *Record) bool {
	return c.now().UnixMilli()-rec.Timestamp < c.ttl.Milliseconds()
}

// SetPreloaded inserts or refreshes the record for videoID and persists
// immediately. jobID may be empty for server-reconciled records.
func (c *Cache) SetPreloaded(videoID, jobID string, metadata json.RawMessage) Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := &Record{
		Preloaded:    true,
		JobID:        jobID,
		Timestamp:    c.now().UnixMilli(),
		CommentCount: DefaultCommentCount,
	}
	if _, exists := c.records[videoID]; !exists {
		c.order = append(c.order, videoID)
	}
	c.records[videoID] = rec
	if len(metadata) > 0 {
		c.metadata[videoID] = metadata
	}
	c.persistLocked()
	return *rec
}

// RemovePreloaded deletes the record and its metadata and persists
// immediately. Removing an absent id is a no-op.
func (c *Cache) RemovePreloaded(videoID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.records[videoID]; !exists {
		delete(c.metadata, videoID)
		return
	}
	delete(c.records, videoID)
	delete(c.metadata, videoID)
	c.removeFromOrderLocked(videoID)
	c.persistLocked()
}

// IsPreloaded reports whether videoID has a TTL-valid record. Reads never
// mutate state; expired records stay in place until CleanExpired.
func (c *Cache) IsPreloaded(videoID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.records[videoID]
	return ok && c.validLocked(rec)
}

// GetPreloadInfo returns the record merged with its metadata, or nil when
// the record is absent or expired.
func (c *Cache) GetPreloadInfo(videoID string) *Info {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.records[videoID]
	if !ok || !c.validLocked(rec) {
		return nil
	}
	return &Info{
		Record:   *rec,
		Metadata: c.metadata[videoID],
	}
}

// AllPreloadedIDs returns every TTL-valid video id in insertion order. The
// order is not stable across restarts.
func (c *Cache) AllPreloadedIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.order))
	for _, id := range c.order {
		if rec, ok := c.records[id]; ok && c.validLocked(rec) {
			ids = append(ids, id)
		}
	}
	return ids
}

// CleanExpired physically removes every expired record and persists once if
// anything was removed. This is the only path that compacts the backing
// store; it is idempotent and safe to call at any time.
func (c *Cache) CleanExpired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := false
	for id, rec := range c.records {
		if c.validLocked(rec) {
			continue
		}
		delete(c.records, id)
		delete(c.metadata, id)
		c.removeFromOrderLocked(id)
		removed = true
	}
	if removed {
		c.persistLocked()
	}
	return removed
}

// Clear drops every record and metadata entry and persists the empty maps.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = make(map[string]*Record)
	c.metadata = make(map[string]json.RawMessage)
	c.order = nil
	c.persistLocked()
}

// SyncWithServer reconciles the cache against the authoritative listing:
// server-listed ids missing or expired locally are set, locally-valid ids
// absent from the listing are removed. A fetch failure aborts before any
// mutation; sync is opportunistic and never fails the caller.
func (c *Cache) SyncWithServer(ctx context.Context) {
	if c.lister == nil {
		log.Warn("Preload sync skipped: no server lister configured")
		return
	}
	listed, err := c.lister.ListPreloadedVideos(ctx)
	if err != nil {
		log.Warn("Preload sync failed: %v", err)
		return
	}

	serverIDs := make(map[string]struct{}, len(listed))
	added, removed := 0, 0
	for _, video := range listed {
		if video.VideoID == "" {
			continue
		}
		serverIDs[video.VideoID] = struct{}{}
		if !c.IsPreloaded(video.VideoID) {
			c.SetPreloaded(video.VideoID, "", video.Metadata)
			added++
		}
	}
	for _, id := range c.AllPreloadedIDs() {
		if _, ok := serverIDs[id]; !ok {
			c.RemovePreloaded(id)
			removed++
		}
	}
	if added > 0 || removed > 0 {
		log.Info("Preload sync: %d added, %d removed", added, removed)
	}
}

func (c *Cache) removeFromOrderLocked(videoID string) {
	for i, id := range c.order {
		if id == videoID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// persistLocked writes both maps back to the store. Failures are logged by
// the store; in-memory state stays authoritative for the session.
func (c *Cache) persistLocked() {
	if c.kv == nil {
		return
	}
	if data, err := json.Marshal(c.records); err == nil {
		c.kv.Set(recordsKey, string(data))
	} else {
		log.Error("Failed to encode preload records: %v", err)
	}
	if data, err := json.Marshal(c.metadata); err == nil {
		c.kv.Set(metadataKey, string(data))
	} else {
		log.Error("Failed to encode preload metadata: %v", err)
	}
}
