package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a run.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
	StatusAborted  Status = "aborted"
)

var allStatuses = []Status{
	StatusPending,
	StatusActive,
	StatusFinished,
	StatusAborted,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusFinished || s == StatusAborted
}

// Run represents one queued, claimed, or completed unit of guided assembly
// work, persisted in SQLite. SessionID, Project, StackID, and Operator are
// immutable after creation; Device is bound at claim time.
type Run struct {
	SessionID     string
	Project       string
	StackID       string
	Operator      string
	Device        string
	Status        Status
	CreatedAt     time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
	InterruptedAt *int
}

// Event is one row of the append-only audit log. Events are a write-only side
// channel; run status is never derived from them.
type Event struct {
	ID        int64
	Timestamp time.Time
	Kind      string
	SessionID string
	Payload   string
}

// Event kinds emitted by the progress workflow.
const (
	EventNextPressed  = "next_pressed"
	EventSessionEnd   = "session_end"
	EventSessionAbort = "session_abort"
)

// DeviceRecord is a permanently registered kiosk device.
type DeviceRecord struct {
	DeviceID    string
	Description string
	AddedAt     time.Time
}

// PresenceRecord tracks the most recent heartbeat from a device. Liveness is
// computed at query time against a cutoff; rows are only removed explicitly.
type PresenceRecord struct {
	DeviceID string
	LastSeen time.Time
}

// DatabaseHealth captures diagnostic information about the run database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalRuns        int
	Error            string
}

// HealthSummary describes aggregated run counts per lifecycle state.
type HealthSummary struct {
	Total    int
	Pending  int
	Active   int
	Finished int
	Aborted  int
}
