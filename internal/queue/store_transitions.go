package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Claim atomically transitions a run pending -> active and binds it to the
// claiming device. The guard and the mutation execute as one UPDATE statement
// so concurrent claimants can never both succeed; the losing statement simply
// matches zero rows.
//
// Returns ErrConflict when the run exists but is not claimable by this device
// (already claimed, terminal, or targeted elsewhere) and ErrNotFound when no
// such run exists.
func (s *Store) Claim(ctx context.Context, sessionID, deviceID string) (*Run, error) {
	now := time.Now().UTC()
	run, err := s.conditionalUpdate(
		ctx,
		`UPDATE runs
         SET status = ?, ts_started = ?, device = ?
         WHERE session_id = ? AND status = ?
           AND (device IS NULL OR device = '' OR device = ?)
         RETURNING `+runColumns,
		StatusActive,
		formatTime(now),
		deviceID,
		sessionID,
		StatusPending,
		deviceID,
	)
	if err != nil {
		return nil, s.classifyNoMatch(ctx, sessionID, err)
	}
	return run, nil
}

// FinishRun atomically transitions a run active -> finished, stamping
// ts_finished exactly once. Duplicate calls observe ErrConflict.
func (s *Store) FinishRun(ctx context.Context, sessionID string) (*Run, error) {
	now := time.Now().UTC()
	run, err := s.conditionalUpdate(
		ctx,
		`UPDATE runs
         SET status = ?, ts_finished = ?
         WHERE session_id = ? AND status = ?
         RETURNING `+runColumns,
		StatusFinished,
		formatTime(now),
		sessionID,
		StatusActive,
	)
	if err != nil {
		return nil, s.classifyNoMatch(ctx, sessionID, err)
	}
	return run, nil
}

// AbortRun atomically transitions a run active -> aborted, recording the step
// the operator was interrupted at. Duplicate calls observe ErrConflict.
func (s *Store) AbortRun(ctx context.Context, sessionID string, step *int) (*Run, error) {
	now := time.Now().UTC()
	run, err := s.conditionalUpdate(
		ctx,
		`UPDATE runs
         SET status = ?, ts_finished = ?, interrupted_at = ?
         WHERE session_id = ? AND status = ?
         RETURNING `+runColumns,
		StatusAborted,
		formatTime(now),
		nullableInt(step),
		sessionID,
		StatusActive,
	)
	if err != nil {
		return nil, s.classifyNoMatch(ctx, sessionID, err)
	}
	return run, nil
}

// conditionalUpdate runs a single guarded UPDATE ... RETURNING statement and
// scans the post-update row. sql.ErrNoRows means the guard did not match.
func (s *Store) conditionalUpdate(ctx context.Context, query string, args ...any) (*Run, error) {
	ctx = ensureContext(ctx)
	var (
		run     *Run
		scanErr error
	)
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, query, args...)
		run, scanErr = scanRun(row)
		if errors.Is(scanErr, sql.ErrNoRows) {
			// Guard mismatch is not a busy condition; stop retrying.
			return nil
		}
		return scanErr
	})
	if err != nil {
		return nil, fmt.Errorf("conditional update: %w", err)
	}
	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	return run, nil
}

// classifyNoMatch distinguishes "no such run" from "run in the wrong state"
// after a conditional update matched nothing. Callers react differently to the
// two cases (404 vs 409).
func (s *Store) classifyNoMatch(ctx context.Context, sessionID string, err error) error {
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if _, getErr := s.GetBySession(ctx, sessionID); getErr != nil {
		return getErr
	}
	return ErrConflict
}
