package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/al-batol/news-bot/internal/health"
	"github.com/al-batol/news-bot/internal/store"
)

// Server provides the HTTP API: a health endpoint and the delivery archive.
type Server struct {
	monitor *health.Monitor
	dedup   *store.DedupStore
	archive *store.Archive
	port    int
}

// New creates a new HTTP server. archive may be nil.
func New(monitor *health.Monitor, dedup *store.DedupStore, archive *store.Archive, port int) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		monitor: monitor,
		dedup:   dedup,
		archive: archive,
		port:    port,
	}
}

// Handler returns the route mux, split out for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/recent", s.handleRecent)
	mux.HandleFunc("/api/v1/seen", s.handleSeen)
	return mux
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("newsbot server listening on %s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ok, reason := s.monitor.Healthy()
	status := http.StatusOK
	resp := map[string]any{
		"status": "ok",
		"report": s.monitor.Snapshot(),
	}
	if !ok {
		status = http.StatusServiceUnavailable
		resp["status"] = "unhealthy"
		resp["reason"] = reason
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if s.archive == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "archive disabled"})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	articles, err := s.archive.Recent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  articles,
		"count": len(articles),
	})
}

func (s *Server) handleSeen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": s.dedup.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
