package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/wayback-journey/internal/checkpoint"
	"github.com/JakeFAU/wayback-journey/internal/metrics"
	"github.com/JakeFAU/wayback-journey/internal/pipeline"
)

const defaultTimeout = 30 * time.Second

// Options tunes the status server.
type Options struct {
	// APIKey, when set, guards /v1 via the X-API-Key header or the api_key
	// query parameter.
	APIKey string
	// Timeout bounds each request. Zero selects 30 seconds.
	Timeout time.Duration
}

// Server reports run progress read from a checkpoint store.
type Server struct {
	router chi.Router
	store  checkpoint.Store
	logger *zap.Logger
}

// NewServer mounts the status routes over store.
func NewServer(store checkpoint.Store, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	s := &Server{store: store, logger: logger.Named("api")}

	r := chi.NewRouter()
	r.Use(withRequestID, s.logRequests, s.recoverPanics, metrics.Middleware, withTimeout(timeout))
	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", metrics.Handler())
	r.Route("/v1", func(v1 chi.Router) {
		if opts.APIKey != "" {
			v1.Use(requireAPIKey(opts.APIKey))
		}
		v1.Get("/summary", s.summary)
		v1.Get("/periods", s.periods)
		v1.Get("/periods/{period}", s.period)
	})
	s.router = r
	return s
}

// Handler exposes the router to an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	run, found, err := pipeline.LoadSummary(r.Context(), s.store)
	switch {
	case err != nil:
		s.fail(w, r, http.StatusInternalServerError, "failed to load summary", err)
	case !found:
		s.fail(w, r, http.StatusNotFound, "no finished run", nil)
	default:
		s.respond(w, http.StatusOK, run)
	}
}

func (s *Server) periods(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.Keys(r.Context(), checkpoint.StageLinks)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "failed to list periods", err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	s.respond(w, http.StatusOK, map[string][]string{"periods": keys})
}

func (s *Server) period(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "period")
	view, err := pipeline.Inspect(r.Context(), s.store, name)
	if errors.Is(err, pipeline.ErrUnknownPeriod) || errors.Is(err, checkpoint.ErrInvalidKey) {
		s.fail(w, r, http.StatusNotFound, "period not found", nil)
		return
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, "failed to load period", err)
		return
	}
	s.respond(w, http.StatusOK, view)
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

// fail writes an error body; cause, when present, is logged but not exposed.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, msg string, cause error) {
	if cause != nil {
		s.logger.Error(msg,
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(cause),
		)
	}
	s.respond(w, status, map[string]string{"error": msg})
}
