package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"shelfsync-api/internal/service"
	"shelfsync-api/pkg/response"
)

// WebhookHandler handles inbound hardware-platform callbacks.
//
// Every outcome, including internal failure, is answered with HTTP 200
// and a status field in the body. An error status code here would
// trigger the sender's own retry logic and amplify load.
type WebhookHandler struct {
	ingestor *service.WebhookIngestor
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(ingestor *service.WebhookIngestor) *WebhookHandler {
	return &WebhookHandler{ingestor: ingestor}
}

// HandleButtonEvent handles POST /api/v1/webhook/button
func (h *WebhookHandler) HandleButtonEvent(w http.ResponseWriter, r *http.Request) {
	var ev service.ButtonEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		log.Printf("[WebhookHandler] undecodable payload: %v", err)
		response.Raw(w, http.StatusOK, service.IngestResult{
			Status:  "error",
			Message: "invalid payload",
		})
		return
	}
	defer r.Body.Close()

	result := h.ingestor.Handle(r.Context(), ev)
	response.Raw(w, http.StatusOK, result)
}

// Describe handles GET /api/v1/webhook/button - a trivial liveness
// check some hardware platforms probe before enabling a callback URL.
func (h *WebhookHandler) Describe(w http.ResponseWriter, r *http.Request) {
	response.Raw(w, http.StatusOK, map[string]string{
		"service": "shelfsync-webhook",
		"accepts": "esl button events",
		"status":  "ready",
	})
}
