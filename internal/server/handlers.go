package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/vectorize/internal/models"
	"github.com/hyperjump/vectorize/internal/storage"
)

type runResponse struct {
	Running bool                  `json:"running"`
	Run     *models.RunStatistics `json:"run,omitempty"`
	Error   string                `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	started, err := s.startRun()
	if err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}
	if !started {
		s.respondError(w, http.StatusConflict, "an indexing run is already in progress")
		return
	}
	s.logger.Info("indexing run triggered", zap.String("dir", s.opts.Dir))
	s.respondJSON(w, http.StatusAccepted, map[string]any{"status": "started", "dir": s.opts.Dir})
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := runResponse{Running: s.active.Load(), Run: s.latest, Error: s.lastErr}
	s.mu.RUnlock()
	if resp.Run == nil && !resp.Running {
		s.respondError(w, http.StatusNotFound, "no run has completed yet")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"mode":    s.runner.Mode(),
		"running": s.active.Load(),
		"dir":     s.opts.Dir,
	}
	if s.opts.Store != nil {
		counts := make(map[string]int64, len(s.opts.Namespaces))
		for _, ns := range s.opts.Namespaces {
			n, err := s.opts.Store.Count(r.Context(), ns)
			if err != nil {
				s.logger.Error("status: count cache entries failed", zap.String("namespace", ns), zap.Error(err))
				s.respondError(w, http.StatusInternalServerError, err.Error())
				return
			}
			counts[ns] = n
		}
		resp["cache_entries"] = counts
	}
	if len(s.opts.DiskPaths) > 0 {
		if n, err := storage.DiskUsageBytes(s.opts.DiskPaths...); err == nil {
			resp["disk_usage_bytes"] = n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
