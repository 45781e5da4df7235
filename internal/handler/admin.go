package handler

import (
	"net/http"
	"runtime"
	"time"

	"shelfsync-api/internal/service"
	"shelfsync-api/pkg/response"
)

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	queue     *service.QueueService
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(queue *service.QueueService) *AdminHandler {
	return &AdminHandler{
		queue:     queue,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)

	// Queue depth per status
	if h.queue != nil {
		counts, err := h.queue.Stats(ctx)
		if err == nil {
			queueStats := make(map[string]int64, len(counts))
			for status, n := range counts {
				queueStats[string(status)] = n
			}
			stats["queue"] = queueStats
		} else {
			stats["queue"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["queue"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_alloc_mb": float64(memStats.HeapAlloc) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}
