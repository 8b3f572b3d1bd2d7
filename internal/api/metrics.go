package api

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/pbel78/scratch2/internal/command"
	"github.com/pbel78/scratch2/internal/infrastructure/mqtt"
)

// healthCheckTimeout bounds each backend check on /health.
const healthCheckTimeout = 3 * time.Second

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	MQTT          MQTTMetrics    `json:"mqtt"`
	Commands      command.Stats  `json:"commands"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics describes the broker session.
type MQTTMetrics struct {
	State      mqtt.State `json:"state"`
	Available  bool       `json:"available"`
	Reconnects int        `json:"reconnects"`
}

// handleMetrics returns runtime, session and dispatcher metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		MQTT: MQTTMetrics{
			State:     s.sessions.State(),
			Available: s.sessions.Available() == nil,
		},
		Commands: s.commands.Stats(),
	}
	if info, ok := s.sessions.Session(); ok {
		metrics.MQTT.Reconnects = info.Reconnects
	}

	writeJSON(w, http.StatusOK, metrics)
}

// handleHealth reports "ok" or "degraded" with per-backend detail. The
// transport being unavailable is the only condition that answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"mqtt": s.sessions.State().String(),
	}
	status := "ok"
	code := http.StatusOK

	if err := s.sessions.Available(); err != nil {
		checks["mqtt"] = err.Error()
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			if status == "ok" {
				status = "degraded"
			}
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}
