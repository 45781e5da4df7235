package model

import "time"

// Priority of a replenishment request.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
)

// MethodESLButton marks requests that originated from a shelf-label
// button press rather than a manual form.
const MethodESLButton = "esl_button"

// ReplenishmentRequest is the business record created from a hardware
// button event (or a manual admin form, which this layer never touches).
type ReplenishmentRequest struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	Method      string    `json:"method"`
	DeviceID    string    `json:"device_id"`
	Quantity    int       `json:"quantity"`
	Priority    Priority  `json:"priority"`
	Status      string    `json:"status"`
	RequesterID int64     `json:"requester_id"`
	CreatedAt   time.Time `json:"created_at"`
}
