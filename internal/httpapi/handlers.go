package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleVideo routes /api/videos/preloaded and the per-video actions:
// /api/videos/{id}/status, /preload, /analyze, /cancel.
func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/videos/"), "/")

	if path == "preloaded" {
		s.handleListPreloaded(w, r)
		return
	}

	videoID, action, found := strings.Cut(path, "/")
	if decoded, err := url.PathUnescape(videoID); err == nil {
		videoID = decoded
	}
	if videoID == "" || !found {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch action {
	case "status":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, s.service.VideoStatus(videoID))
	case "preload":
		s.handleSubmit(w, r, videoID, s.service.PreloadVideo)
	case "analyze":
		s.handleSubmit(w, r, videoID, s.service.AnalyzeVideo)
	case "cancel":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := s.service.CancelVideoJob(r.Context(), videoID); err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, videoID string,
	submit func(ctx context.Context, videoID string) (string, error)) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID, err := submit(r.Context(), videoID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"job_id":  jobID,
	})
}

func (s *Server) handleListPreloaded(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"preloaded_videos": s.service.PreloadedVideoIDs(),
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":        s.jobs.JobStatuses(),
		"active_jobs": s.jobs.ActiveJobs(),
	})
}

func (s *Server) handleClearCompleted(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	removed := s.jobs.ClearCompletedJobs()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"removed": removed,
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if s.toasts == nil {
		writeError(w, http.StatusNotFound, "notifications disabled")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": s.toasts.Recent(),
	})
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	if s.toasts == nil {
		writeError(w, http.StatusNotFound, "notifications disabled")
		return
	}
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/notifications/"), "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing notification id")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": s.toasts.Dismiss(id)})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
