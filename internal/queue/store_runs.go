package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const runColumns = "session_id, project, stack_id, operator, device, status, ts_created, ts_started, ts_finished, interrupted_at"

// Enqueue inserts a new pending run. An empty device leaves the run claimable
// by any kiosk; a non-empty device restricts claim eligibility to that kiosk.
func (s *Store) Enqueue(ctx context.Context, project, stackID, operator, device string) (*Run, error) {
	project = strings.TrimSpace(project)
	stackID = strings.TrimSpace(stackID)
	operator = strings.TrimSpace(operator)
	if project == "" {
		return nil, fmt.Errorf("%w: project is required", ErrValidation)
	}
	if stackID == "" {
		return nil, fmt.Errorf("%w: stack_id is required", ErrValidation)
	}
	if operator == "" {
		return nil, fmt.Errorf("%w: operator is required", ErrValidation)
	}

	sessionID := newSessionID()
	now := time.Now().UTC()

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (session_id, project, stack_id, operator, device, status, ts_created)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		project,
		stackID,
		operator,
		nullableString(strings.TrimSpace(device)),
		StatusPending,
		formatTime(now),
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return s.GetBySession(ctx, sessionID)
}

// GetBySession fetches a run by its session identifier.
func (s *Store) GetBySession(ctx context.Context, sessionID string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE session_id = ?`, sessionID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns runs filtered by status set (or all runs when no status is
// provided), newest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Run, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + runColumns + ` FROM runs`
	orderClause := ` ORDER BY ts_created DESC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListPendingFor returns pending runs visible to a device, oldest first. A run
// with no device restriction is visible to every device.
func (s *Store) ListPendingFor(ctx context.Context, deviceID string) ([]*Run, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+runColumns+` FROM runs
         WHERE status = ? AND (device IS NULL OR device = '' OR device = ?)
         ORDER BY ts_created`,
		StatusPending,
		deviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Delete removes a run, permitted only while it is still pending. Claimed and
// terminal runs are part of the audit trail and stay in place.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM runs WHERE session_id = ? AND status = ?`, sessionID, StatusPending)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := s.GetBySession(ctx, sessionID); err != nil {
		return err
	}
	return fmt.Errorf("%w: run is active or terminal", ErrConflict)
}

// Stats returns a count of runs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("run stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates run state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusActive:
			health.Active += count
		case StatusFinished:
			health.Finished += count
		case StatusAborted:
			health.Aborted += count
		}
	}
	return health, nil
}

// CheckHealth returns diagnostic information about the run database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("run database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat run database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("run database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("run database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping run database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'runs'")
	if err := row.Scan(&tableName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			health.TableExists = false
		} else {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
	} else {
		health.TableExists = true
	}

	if health.TableExists {
		colsRows, err := s.db.QueryContext(connCtx, "PRAGMA table_info(runs)")
		if err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("table info: %w", err)
		}
		defer colsRows.Close()

		var columns []string
		for colsRows.Next() {
			var (
				cid     int
				name    string
				typeStr string
				notNull int
				dflt    any
				pk      int
			)
			if err := colsRows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
				health.Error = err.Error()
				return health, fmt.Errorf("scan table info: %w", err)
			}
			columns = append(columns, name)
		}
		if err := colsRows.Err(); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("iterate table info: %w", err)
		}
		health.ColumnsPresent = append(health.ColumnsPresent, columns...)

		expected := []string{"session_id", "project", "stack_id", "operator", "device", "status", "ts_created", "ts_started", "ts_finished", "interrupted_at"}
		missingMap := make(map[string]struct{}, len(expected))
		for _, col := range expected {
			missingMap[col] = struct{}{}
		}
		for _, col := range columns {
			delete(missingMap, col)
		}
		for col := range missingMap {
			health.MissingColumns = append(health.MissingColumns, col)
		}

		row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM runs")
		if err := row.Scan(&health.TotalRuns); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count runs: %w", err)
		}
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		sessionID     string
		project       string
		stackID       string
		operator      string
		device        sql.NullString
		statusStr     string
		createdRaw    sql.NullString
		startedRaw    sql.NullString
		finishedRaw   sql.NullString
		interruptedAt sql.NullInt64
	)

	if err := scanner.Scan(
		&sessionID,
		&project,
		&stackID,
		&operator,
		&device,
		&statusStr,
		&createdRaw,
		&startedRaw,
		&finishedRaw,
		&interruptedAt,
	); err != nil {
		return nil, err
	}

	run := &Run{
		SessionID: sessionID,
		Project:   project,
		StackID:   stackID,
		Operator:  operator,
		Device:    device.String,
		Status:    Status(statusStr),
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		run.CreatedAt = created
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			run.StartedAt = &started
		}
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	if interruptedAt.Valid {
		step := int(interruptedAt.Int64)
		run.InterruptedAt = &step
	}
	return run, nil
}

func newSessionID() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
