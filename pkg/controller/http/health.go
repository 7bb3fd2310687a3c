package http

import (
	"net/http"
	"time"
)

type statusSnapshot struct {
	Status       string `json:"status"`
	ActiveAgents int    `json:"active_agents"`
	ActiveTasks  int    `json:"active_tasks"`
	UptimeSec    int64  `json:"uptime_sec"`
	Error        string `json:"error,omitempty"`
}

func (s *Server) snapshot(r *http.Request) statusSnapshot {
	snap := statusSnapshot{
		Status:       "healthy",
		ActiveAgents: s.dispatcher.ActiveAgents(),
		ActiveTasks:  s.dispatcher.ActiveTasks(),
		UptimeSec:    int64(s.dispatcher.Uptime() / time.Second),
	}
	if err := s.dispatcher.HealthCheck(r.Context()); err != nil {
		snap.Status = "unhealthy"
		snap.Error = err.Error()
	}
	return snap
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(r)

	status := http.StatusOK
	if snap.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, snap)
}

// metricsHandler serves the same status snapshot as /health, always with
// 200. Prometheus exposition lives at /metrics/prometheus.
func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.snapshot(r))
}
