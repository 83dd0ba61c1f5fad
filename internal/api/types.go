package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Run describes a queued or claimed session in a transport-friendly format.
type Run struct {
	SessionID     string `json:"session_id"`
	Project       string `json:"project"`
	StackID       string `json:"stack_id"`
	Operator      string `json:"operator"`
	Device        string `json:"device,omitempty"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at,omitempty"`
	StartedAt     string `json:"started_at,omitempty"`
	FinishedAt    string `json:"finished_at,omitempty"`
	InterruptedAt *int   `json:"interrupted_at,omitempty"`
}

// Step is one instruction of a project sequence as served to kiosks.
type Step struct {
	Label     string `json:"label"`
	Component string `json:"component,omitempty"`
	Image     string `json:"img,omitempty"`
}

// Event is one audit-log entry.
type Event struct {
	ID        int64           `json:"id"`
	Timestamp string          `json:"ts"`
	Kind      string          `json:"kind"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Device describes a registered kiosk and whether it heartbeated recently.
type Device struct {
	DeviceID    string `json:"device_id"`
	Description string `json:"description,omitempty"`
	AddedAt     string `json:"added_at,omitempty"`
	Live        bool   `json:"live"`
}

// EnqueueRequest queues a new run.
type EnqueueRequest struct {
	Project  string `json:"project"`
	StackID  string `json:"stack_id"`
	Operator string `json:"operator"`
	Device   string `json:"device,omitempty"`
}

// ClaimRequest asks for work on behalf of a kiosk. SessionID targets a
// specific run; empty means oldest-first.
type ClaimRequest struct {
	DeviceID  string `json:"device_id"`
	SessionID string `json:"session_id,omitempty"`
}

// ClaimResponse reports the claim outcome.
type ClaimResponse struct {
	Status   string `json:"status"`
	Run      *Run   `json:"run,omitempty"`
	Sequence []Step `json:"sequence,omitempty"`
}

// ProgressRequest advances, finishes, or aborts an active session.
type ProgressRequest struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
	Component string `json:"component,omitempty"`
	Step      *int   `json:"step,omitempty"`
}

// HeartbeatRequest announces a device is alive.
type HeartbeatRequest struct {
	DeviceID string `json:"device_id"`
}

// SessionSummary is the detail view of one run.
type SessionSummary struct {
	Run        Run `json:"run"`
	TotalSteps int `json:"total_steps"`
}

// RunListResponse wraps a collection of runs.
type RunListResponse struct {
	Items []Run `json:"items"`
}

// EventListResponse wraps a slice of audit-log entries.
type EventListResponse struct {
	Events []Event `json:"events"`
}

// DeviceListResponse wraps registered devices.
type DeviceListResponse struct {
	Devices []Device `json:"devices"`
}

// StatsResponse provides normalized run counts keyed by status.
type StatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DBPath       string         `json:"db_path"`
	LockFilePath string         `json:"lock_file_path"`
	DeviceID     string         `json:"device_id"`
	ActiveLine   *int           `json:"active_line,omitempty"`
	QueueStats   map[string]int `json:"queue_stats"`
}
