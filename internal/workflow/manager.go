package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tbag/internal/components"
	"tbag/internal/config"
	"tbag/internal/lines"
	"tbag/internal/logging"
	"tbag/internal/projects"
	"tbag/internal/queue"
)

// ClaimResult is the outcome of a claim attempt. Status is "claimed" when a
// run was won, "none" when no claimable run existed. Sequence carries the
// run's step recipe so kiosks need no second round trip.
type ClaimResult struct {
	Status   string          `json:"status"`
	Run      *queue.Run      `json:"run,omitempty"`
	Sequence []projects.Step `json:"sequence,omitempty"`
}

const (
	ClaimStatusClaimed = "claimed"
	ClaimStatusNone    = "none"
)

// Manager coordinates the guided-assembly flow: claiming runs, stepping
// through sequences, terminal transitions, and the output lines that mirror
// progress on the shop floor.
type Manager struct {
	cfg        *config.Config
	store      *queue.Store
	lines      *lines.Manager
	projects   *projects.Store
	components *components.Library
	logger     *slog.Logger
}

// NewManager wires a Manager over its collaborators.
func NewManager(
	cfg *config.Config,
	store *queue.Store,
	lineMgr *lines.Manager,
	projectStore *projects.Store,
	library *components.Library,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:        cfg,
		store:      store,
		lines:      lineMgr,
		projects:   projectStore,
		components: library,
		logger:     logger.With(logging.String(logging.FieldComponent, "workflow")),
	}
}

// Claim hands deviceID a run to work on. With a sessionID the claim targets
// exactly that run and conflicts surface to the caller. Without one, pending
// runs visible to the device are tried oldest first; runs stolen by another
// kiosk mid-iteration are skipped. A dry queue yields status "none".
//
// Winning a claim force-resets all output lines so the new session starts
// from a dark panel.
func (m *Manager) Claim(ctx context.Context, deviceID, sessionID string) (*ClaimResult, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device_id is required", queue.ErrValidation)
	}

	if sessionID != "" {
		run, err := m.store.Claim(ctx, sessionID, deviceID)
		if err != nil {
			return nil, err
		}
		return m.claimed(run), nil
	}

	retryLimit := m.cfg.Workflow.ClaimRetryLimit
	if retryLimit <= 0 {
		retryLimit = 1
	}
	for attempt := 0; attempt < retryLimit; attempt++ {
		candidates, err := m.store.ListPendingFor(ctx, deviceID)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return &ClaimResult{Status: ClaimStatusNone}, nil
		}

		for _, candidate := range candidates {
			run, err := m.store.Claim(ctx, candidate.SessionID, deviceID)
			if err != nil {
				if queue.IsConflict(err) || queue.IsNotFound(err) {
					// Lost the race for this run, try the next.
					continue
				}
				return nil, err
			}
			return m.claimed(run), nil
		}
		// Every candidate was taken while we iterated; refresh the list.
	}
	return &ClaimResult{Status: ClaimStatusNone}, nil
}

func (m *Manager) claimed(run *queue.Run) *ClaimResult {
	m.lines.ForceResetAll()
	m.logger.Info("session claimed",
		logging.String(logging.FieldSessionID, run.SessionID),
		logging.String(logging.FieldDeviceID, run.Device),
		logging.String("project", run.Project))
	return &ClaimResult{
		Status:   ClaimStatusClaimed,
		Run:      run,
		Sequence: m.projects.Sequence(run.Project),
	}
}

// Next advances an active session by one step. An unknown component fails
// before any side effect. A component with a line mapping lights that line;
// hardware faults degrade inside the line manager and never fail the step.
// The press is recorded in the event log.
func (m *Manager) Next(ctx context.Context, sessionID, componentID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session_id is required", queue.ErrValidation)
	}

	payload := map[string]any{}
	if componentID != "" {
		comp, err := m.components.Load(componentID)
		if err != nil {
			if errors.Is(err, components.ErrNotFound) {
				return fmt.Errorf("component %q: %w", componentID, queue.ErrNotFound)
			}
			return err
		}
		payload["component"] = componentID
		if comp.Line != nil {
			m.lines.Activate(*comp.Line)
		}
	}

	if _, err := m.store.AppendEvent(ctx, queue.EventNextPressed, sessionID, payload); err != nil {
		return err
	}
	m.logger.Debug("step advanced",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String("component", componentID))
	return nil
}

// Finish completes an active session. A session already finished or aborted
// is a logged no-op: the worker's intent is satisfied either way. The
// session_end event is appended only when this call actually performed the
// transition, after the database commit. Lines are always swept afterwards.
func (m *Manager) Finish(ctx context.Context, sessionID string) error {
	defer m.lines.ForceResetAll()

	run, err := m.store.FinishRun(ctx, sessionID)
	if err != nil {
		if queue.IsConflict(err) {
			m.logger.Info("finish ignored, session not active",
				logging.String(logging.FieldSessionID, sessionID))
			return nil
		}
		return err
	}

	if _, err := m.store.AppendEvent(ctx, queue.EventSessionEnd, sessionID, map[string]any{}); err != nil {
		m.logger.Warn("session finished but event append failed",
			logging.String(logging.FieldSessionID, sessionID),
			logging.Error(err))
	}
	m.logger.Info("session finished",
		logging.String(logging.FieldSessionID, run.SessionID),
		logging.String("project", run.Project))
	return nil
}

// Abort interrupts an active session, recording the step it stopped at.
// Stale aborts are logged no-ops, the same discipline as Finish.
func (m *Manager) Abort(ctx context.Context, sessionID string, step *int) error {
	defer m.lines.ForceResetAll()

	run, err := m.store.AbortRun(ctx, sessionID, step)
	if err != nil {
		if queue.IsConflict(err) {
			m.logger.Info("abort ignored, session not active",
				logging.String(logging.FieldSessionID, sessionID))
			return nil
		}
		return err
	}

	payload := map[string]any{}
	if step != nil {
		payload["step"] = *step
	}
	if _, err := m.store.AppendEvent(ctx, queue.EventSessionAbort, sessionID, payload); err != nil {
		m.logger.Warn("session aborted but event append failed",
			logging.String(logging.FieldSessionID, sessionID),
			logging.Error(err))
	}
	m.logger.Info("session aborted",
		logging.String(logging.FieldSessionID, run.SessionID),
		logging.String("project", run.Project))
	return nil
}

// Startup restores the safe hardware state after a daemon restart. Line
// ownership is process-local, so whatever a crashed predecessor left lit is
// unknowable; sweep everything low.
func (m *Manager) Startup() {
	m.lines.ForceResetAll()
	m.logger.Info("output lines reset")
}

// SequenceFor exposes a project's step sequence for summary views.
func (m *Manager) SequenceFor(project string) []projects.Step {
	return m.projects.Sequence(project)
}
