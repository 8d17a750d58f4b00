package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jwebster45206/anima-narrator/internal/logger"
)

const healthProbeTimeout = 2 * time.Second

// Pinger is anything whose liveness the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ComponentHealth struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Service    string                     `json:"service"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
}

type HealthHandler struct {
	components map[string]Pinger
	started    time.Time
	logger     *slog.Logger
}

func NewHealthHandler(components map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		components: components,
		started:    time.Now(),
		logger:     logger,
	}
}

// ServeHTTP probes every component in parallel. Any failure degrades the
// service and answers 503 so load balancers stop routing turns here.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]ComponentHealth, len(h.components))
	)
	for name, c := range h.components {
		wg.Go(func() {
			start := time.Now()
			err := c.Ping(ctx)
			ch := ComponentHealth{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				h.logger.Warn("Health probe failed", "component", name, "error", err)
				ch.Status = "unhealthy"
				ch.Error = err.Error()
			}
			mu.Lock()
			results[name] = ch
			mu.Unlock()
		})
	}
	wg.Wait()

	status, code := "healthy", http.StatusOK
	for _, ch := range results {
		if ch.Status != "healthy" {
			status, code = "degraded", http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, h.logger, code, HealthResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Service:    logger.ServiceName,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Components: results,
	})
}
