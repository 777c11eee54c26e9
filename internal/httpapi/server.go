package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/theresaanna/sentiment-analyzer-sub001/internal/dashboard"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/jobs"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/notify"
)

// Server exposes the dashboard state over a local JSON API consumed by the
// UI.
type Server struct {
	service *dashboard.Service
	jobs    *jobs.Store
	toasts  *notify.Center

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

// WithToastCenter enables the notification endpoints.
func WithToastCenter(toasts *notify.Center) Option {
	return func(s *Server) {
		s.toasts = toasts
	}
}

func NewServer(service *dashboard.Service, jobStore *jobs.Store, opts ...Option) *Server {
	s := &Server{
		service: service,
		jobs:    jobStore,
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/videos/", s.handleVideo)
	s.mux.HandleFunc("/api/jobs", s.handleListJobs)
	s.mux.HandleFunc("/api/jobs/clear-completed", s.handleClearCompleted)
	s.mux.HandleFunc("/api/notifications", s.handleNotifications)
	s.mux.HandleFunc("/api/notifications/", s.handleDismissNotification)
	s.mux.HandleFunc("/api/health", s.handleHealth)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
