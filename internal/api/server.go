// Package api exposes the research agent over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hunterwarburton/ferret/internal/agent"
	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/hunterwarburton/ferret/internal/logger"
)

// ResearchAgent is the part of the agent the HTTP surface needs.
type ResearchAgent interface {
	HandleQuery(ctx context.Context, query string) (core.Response, error)
	Stats(ctx context.Context) (agent.Stats, error)
}

// searchRequest is the POST /search body.
type searchRequest struct {
	Query string `json:"query"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server routes HTTP requests to the research agent.
type Server struct {
	agent  ResearchAgent
	router chi.Router
}

// NewServer builds the HTTP surface around agent.
func NewServer(agent ResearchAgent) *Server {
	s := &Server{agent: agent}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Post("/search", s.handleSearch)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)

	s.router = r
	return s
}

// Handler returns the routed http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks serving HTTP on addr until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	resp, err := s.agent.HandleQuery(r.Context(), req.Query)
	if err != nil {
		logger.Error("Handling query %q: %v", req.Query, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "research failed"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.agent.Stats(r.Context())
	if err != nil {
		logger.Error("Reading stats: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "stats unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Encoding response: %v", err)
	}
}
