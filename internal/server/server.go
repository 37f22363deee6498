package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ogulcanaydogan/FareWatch/pkg/model"
	"github.com/ogulcanaydogan/FareWatch/pkg/monitor"
)

// Caller identity headers.
const (
	HeaderUser     = "X-FareWatch-User"
	HeaderPlatform = "X-FareWatch-Platform"
	HeaderNotify   = "X-FareWatch-Notify"

	defaultPlatform = "api"
)

const (
	readTimeout     = 10 * time.Second
	providerTimeout = 2 * time.Minute
	responseMargin  = 30 * time.Second
)

// WriteTimeout returns configured, raised if needed so a response can still be
// written after the slowest provider-bound handler hits its deadline.
func WriteTimeout(configured time.Duration) time.Duration {
	if floor := providerTimeout + responseMargin; configured < floor {
		return floor
	}
	return configured
}

// Server exposes the alert operations, health and metrics over HTTP.
type Server struct {
	service    *monitor.Service
	metrics    http.Handler
	cronSecret string
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates an API server. metrics may be nil to disable /metrics;
// an empty cronSecret disables /api/v1/sweep.
func NewServer(svc *monitor.Service, metrics http.Handler, cronSecret string, logger *slog.Logger) *Server {
	s := &Server{
		service:    svc,
		metrics:    metrics,
		cronSecret: cronSecret,
		mux:        http.NewServeMux(),
		logger:     logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
	s.mux.HandleFunc("GET /api/v1/alerts", s.withOwner(s.handleList))
	s.mux.HandleFunc("POST /api/v1/alerts", s.withOwner(s.handleTrack))
	s.mux.HandleFunc("DELETE /api/v1/alerts/{prefix}", s.withOwner(s.handleRemove))
	s.mux.HandleFunc("GET /api/v1/alerts/{prefix}/history", s.withOwner(s.handleHistory))
	s.mux.HandleFunc("POST /api/v1/check", s.withOwner(s.handleCheck))
	s.mux.HandleFunc("GET /api/v1/search", s.handleSearch)
	s.mux.HandleFunc("POST /api/v1/sweep", s.handleSweep)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type ownerHandler func(w http.ResponseWriter, r *http.Request, owner *model.Owner)

// withOwner resolves the caller from the identity headers, refreshing their notify target.
func (s *Server) withOwner(next ownerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get(HeaderUser))
		if user == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: HeaderUser + " header is required"})
			return
		}
		platform := r.Header.Get(HeaderPlatform)
		if platform == "" {
			platform = defaultPlatform
		}

		ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
		owner, err := s.service.ResolveOwner(ctx, platform, user, r.Header.Get(HeaderNotify))
		cancel()
		if err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r, owner)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, owner *model.Owner) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	list, err := s.service.List(ctx, owner.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []model.Alert{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request, owner *model.Owner) {
	var req monitor.TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	req.OwnerID = owner.ID
	req.NotifyTarget = owner.NotifyTarget

	ctx, cancel := context.WithTimeout(r.Context(), providerTimeout)
	defer cancel()

	tracked, err := s.service.Track(ctx, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tracked)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request, owner *model.Owner) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	alert, err := s.service.Remove(ctx, owner.ID, r.PathValue("prefix"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, owner *model.Owner) {
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	hist, err := s.service.History(ctx, owner.ID, r.PathValue("prefix"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request, owner *model.Owner) {
	ctx, cancel := context.WithTimeout(r.Context(), providerTimeout)
	defer cancel()

	result, err := s.service.Check(ctx, owner.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), providerTimeout)
	defer cancel()

	q := r.URL.Query()
	result, err := s.service.Search(ctx, monitor.SearchRequest{
		Origins:      q.Get("origins"),
		Destinations: q.Get("destinations"),
		Start:        q.Get("start"),
		End:          q.Get("end"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSweep lets an external cron trigger a full sweep.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if s.cronSecret == "" {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "sweep endpoint is disabled"})
		return
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.cronSecret)) != 1 {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), providerTimeout)
	defer cancel()

	result, err := s.service.Sweep(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case model.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrBudgetExceeded):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrAmbiguous):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		writeJSON(w, status, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
