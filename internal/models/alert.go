package models

import "time"

type AlertSource string

const (
	AlertSourceSystem AlertSource = "system"
	AlertSourceManual AlertSource = "manual"
)

// Alert is one row of alert history for a (disaster, location) pair.
// Rows are deactivated, never deleted.
type Alert struct {
	ID          string      `json:"id"`
	DisasterID  int64       `json:"disaster_id"`
	LocationID  int64       `json:"location_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Severity    Severity    `json:"severity"`
	Source      AlertSource `json:"source"`
	Active      bool        `json:"active"`
	EventID     string      `json:"event_id,omitempty"` // external point-event id, empty for continuous-signal alerts
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
}

type AlertEventKind string

const (
	AlertEventOpened  AlertEventKind = "opened"
	AlertEventCleared AlertEventKind = "cleared"
)

// AlertEvent describes a lifecycle transition published to subscribers.
type AlertEvent struct {
	Kind         AlertEventKind `json:"kind"`
	AlertID      string         `json:"alert_id"`
	SupersededID string         `json:"superseded_id,omitempty"`
	DisasterID   int64          `json:"disaster_id"`
	LocationID   int64          `json:"location_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Severity     Severity       `json:"severity"`
	EventID      string         `json:"event_id,omitempty"`
	At           time.Time      `json:"at"`
}
