package realtime

import "time"

type SSEEvent string

const (
	SSEEventProgressUpdated SSEEvent = "progress.updated"
	SSEEventPathUpdated     SSEEvent = "path.updated"
)

// SSEMessage is what travels on the bus and out to stream clients. Channel is a path id.
type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// ProgressUpdate is the Data of a progress.updated message.
type ProgressUpdate struct {
	PathID         string    `json:"path_id"`
	Slug           string    `json:"slug"`
	TotalItems     int       `json:"total_items"`
	CompletedItems int       `json:"completed_items"`
	TotalProgress  int       `json:"total_progress"`
	UpdatedAt      time.Time `json:"updated_at"`
}
