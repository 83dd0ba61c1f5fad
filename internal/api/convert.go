package api

import (
	"encoding/json"
	"time"

	"tbag/internal/projects"
	"tbag/internal/queue"
)

// FromRun converts a queue record to its API representation.
func FromRun(run *queue.Run) Run {
	if run == nil {
		return Run{}
	}
	dto := Run{
		SessionID:     run.SessionID,
		Project:       run.Project,
		StackID:       run.StackID,
		Operator:      run.Operator,
		Device:        run.Device,
		Status:        string(run.Status),
		InterruptedAt: run.InterruptedAt,
	}
	if !run.CreatedAt.IsZero() {
		dto.CreatedAt = run.CreatedAt.UTC().Format(dateTimeFormat)
	}
	dto.StartedAt = formatOptionalTime(run.StartedAt)
	dto.FinishedAt = formatOptionalTime(run.FinishedAt)
	return dto
}

// FromRuns converts a slice of queue records.
func FromRuns(runs []*queue.Run) []Run {
	items := make([]Run, 0, len(runs))
	for _, run := range runs {
		items = append(items, FromRun(run))
	}
	return items
}

// FromEvent converts an audit-log record.
func FromEvent(ev *queue.Event) Event {
	if ev == nil {
		return Event{}
	}
	dto := Event{
		ID:        ev.ID,
		Kind:      ev.Kind,
		SessionID: ev.SessionID,
	}
	if !ev.Timestamp.IsZero() {
		dto.Timestamp = ev.Timestamp.UTC().Format(dateTimeFormat)
	}
	if ev.Payload != "" {
		dto.Payload = json.RawMessage(ev.Payload)
	}
	return dto
}

// FromEvents converts a slice of audit-log records.
func FromEvents(events []*queue.Event) []Event {
	items := make([]Event, 0, len(events))
	for _, ev := range events {
		items = append(items, FromEvent(ev))
	}
	return items
}

// FromSteps converts project sequence steps.
func FromSteps(steps []projects.Step) []Step {
	if len(steps) == 0 {
		return nil
	}
	items := make([]Step, 0, len(steps))
	for _, step := range steps {
		items = append(items, Step{
			Label:     step.Label,
			Component: step.Component,
			Image:     step.Image,
		})
	}
	return items
}

// MergeStats normalizes queue stats so every known status has an entry.
func MergeStats(stats map[queue.Status]int) map[string]int {
	merged := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		merged[string(status)] = stats[status]
	}
	return merged
}

func formatOptionalTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
