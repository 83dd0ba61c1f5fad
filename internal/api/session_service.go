package api

import (
	"context"
	"fmt"
	"time"

	"tbag/internal/config"
	"tbag/internal/queue"
	"tbag/internal/workflow"
)

// Progress actions accepted by the API.
const (
	ActionNext   = "next"
	ActionFinish = "finish"
	ActionAbort  = "abort"
)

// SessionService exposes the session lifecycle to transports. The HTTP
// server and the CLI client both speak in this package's DTOs.
type SessionService struct {
	store           *queue.Store
	flow            *workflow.Manager
	presenceTimeout time.Duration
}

// NewSessionService constructs a SessionService.
func NewSessionService(cfg *config.Config, store *queue.Store, flow *workflow.Manager) *SessionService {
	timeout := time.Duration(cfg.Device.PresenceTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &SessionService{store: store, flow: flow, presenceTimeout: timeout}
}

// Pending lists queued runs a device may claim, oldest first.
func (s *SessionService) Pending(ctx context.Context, deviceID string) ([]Run, error) {
	runs, err := s.store.ListPendingFor(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return FromRuns(runs), nil
}

// List returns runs filtered by status, newest first.
func (s *SessionService) List(ctx context.Context, statuses ...queue.Status) ([]Run, error) {
	runs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromRuns(runs), nil
}

// Enqueue creates a new pending run.
func (s *SessionService) Enqueue(ctx context.Context, req EnqueueRequest) (*Run, error) {
	run, err := s.store.Enqueue(ctx, req.Project, req.StackID, req.Operator, req.Device)
	if err != nil {
		return nil, err
	}
	dto := FromRun(run)
	return &dto, nil
}

// Describe returns one run with its project's step count.
func (s *SessionService) Describe(ctx context.Context, sessionID string) (*SessionSummary, error) {
	run, err := s.store.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionSummary{
		Run:        FromRun(run),
		TotalSteps: len(s.flow.SequenceFor(run.Project)),
	}, nil
}

// Remove deletes a run that is still pending.
func (s *SessionService) Remove(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}

// Claim asks the workflow for a run on behalf of a device.
func (s *SessionService) Claim(ctx context.Context, req ClaimRequest) (*ClaimResponse, error) {
	result, err := s.flow.Claim(ctx, req.DeviceID, req.SessionID)
	if err != nil {
		return nil, err
	}
	resp := &ClaimResponse{Status: result.Status}
	if result.Run != nil {
		run := FromRun(result.Run)
		resp.Run = &run
		resp.Sequence = FromSteps(result.Sequence)
	}
	return resp, nil
}

// Progress dispatches a kiosk button press to the workflow.
func (s *SessionService) Progress(ctx context.Context, req ProgressRequest) error {
	switch req.Action {
	case ActionNext:
		return s.flow.Next(ctx, req.SessionID, req.Component)
	case ActionFinish:
		return s.flow.Finish(ctx, req.SessionID)
	case ActionAbort:
		return s.flow.Abort(ctx, req.SessionID, req.Step)
	default:
		return fmt.Errorf("%w: unknown action %q", queue.ErrValidation, req.Action)
	}
}

// Heartbeat records that a device is alive and registers it if new.
func (s *SessionService) Heartbeat(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device_id is required", queue.ErrValidation)
	}
	if err := s.store.RegisterDevice(ctx, deviceID, ""); err != nil {
		return err
	}
	return s.store.TouchPresence(ctx, deviceID)
}

// Leave removes a device's presence row, typically on clean shutdown.
func (s *SessionService) Leave(ctx context.Context, deviceID string) error {
	return s.store.RemovePresence(ctx, deviceID)
}

// Devices lists registered devices annotated with liveness.
func (s *SessionService) Devices(ctx context.Context) ([]Device, error) {
	records, err := s.store.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	live, err := s.store.LiveDevices(ctx, s.presenceTimeout)
	if err != nil {
		return nil, err
	}
	liveSet := make(map[string]struct{}, len(live))
	for _, id := range live {
		liveSet[id] = struct{}{}
	}

	devices := make([]Device, 0, len(records))
	for _, rec := range records {
		_, isLive := liveSet[rec.DeviceID]
		dto := Device{
			DeviceID:    rec.DeviceID,
			Description: rec.Description,
			Live:        isLive,
		}
		if !rec.AddedAt.IsZero() {
			dto.AddedAt = rec.AddedAt.UTC().Format(dateTimeFormat)
		}
		devices = append(devices, dto)
	}
	return devices, nil
}

// Events returns audit-log entries, per session when sessionID is set,
// otherwise the most recent entries up to limit.
func (s *SessionService) Events(ctx context.Context, sessionID string, limit int) ([]Event, error) {
	if sessionID != "" {
		events, err := s.store.EventsBySession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return FromEvents(events), nil
	}
	if limit <= 0 {
		limit = 50
	}
	events, err := s.store.RecentEvents(ctx, limit)
	if err != nil {
		return nil, err
	}
	return FromEvents(events), nil
}

// Stats returns run counts per status.
func (s *SessionService) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeStats(stats), nil
}

// Health runs store diagnostics.
func (s *SessionService) Health(ctx context.Context) (queue.DatabaseHealth, error) {
	return s.store.CheckHealth(ctx)
}
