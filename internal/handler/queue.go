package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"shelfsync-api/internal/model"
	"shelfsync-api/internal/service"
	"shelfsync-api/pkg/apierror"
	"shelfsync-api/pkg/response"
)

// QueueHandler exposes the queue trigger and the shared
// try-immediate-else-enqueue entry point for business handlers.
type QueueHandler struct {
	queue *service.QueueService
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(queue *service.QueueService) *QueueHandler {
	return &QueueHandler{queue: queue}
}

// ProcessResponse is the queue trigger's wire shape.
type ProcessResponse struct {
	Processed  int    `json:"processed"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	Reclaimed  int64  `json:"reclaimed"`
	DurationMs int64  `json:"duration_ms"`
	Timestamp  string `json:"timestamp"`
}

// Process handles POST /api/v1/queue/process - the external periodic or
// manual trigger. An optional ?limit= caps the batch size.
func (h *QueueHandler) Process(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	start := time.Now()
	reclaimed := h.queue.ReclaimStale(r.Context())
	result := h.queue.ProcessBatch(r.Context(), limit)

	response.Raw(w, http.StatusOK, ProcessResponse{
		Processed:  result.Processed,
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
		Reclaimed:  reclaimed,
		DurationMs: time.Since(start).Milliseconds(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

// SyncRequest is the body of the immediate-sync entry point.
type SyncRequest struct {
	EntityType string          `json:"entity_type"`
	Operation  string          `json:"operation"`
	EntityID   int64           `json:"entity_id"`
	Payload    json.RawMessage `json:"payload"`
}

// Sync handles POST /api/v1/sync - the single fallback policy the admin
// app's mutation handlers call after committing locally.
func (h *QueueHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.EntityType == "" || req.Operation == "" || req.EntityID == 0 {
		response.Error(w, apierror.BadRequest("entity_type, operation and entity_id are required"))
		return
	}

	synced, err := h.queue.SyncOrEnqueue(r.Context(),
		model.EntityType(req.EntityType), model.Operation(req.Operation), req.EntityID, req.Payload)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to queue sync"))
		return
	}

	status := "queued"
	if synced {
		status = "synced"
	}
	response.OK(w, map[string]interface{}{
		"status":    status,
		"entity_id": req.EntityID,
	})
}
