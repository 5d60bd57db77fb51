package models

import "time"

// PendingEvent is a single tracked interaction, buffered locally until the
// batch containing it is accepted by the remote.
type PendingEvent struct {
	DeviceID        string         `json:"device_id"`
	ContentType     string         `json:"content_type"`
	ContentID       int            `json:"content_id"`
	InteractionType string         `json:"interaction_type"`
	Timestamp       time.Time      `json:"timestamp"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// SessionData is lightweight device/session metadata reported alongside
// analytics, persisted under its own key.
type SessionData struct {
	DeviceID      string    `json:"device_id"`
	Platform      string    `json:"platform"`
	AppVersion    string    `json:"app_version"`
	SessionCount  int       `json:"session_count"`
	LastSessionAt time.Time `json:"last_session_at"`
}
