package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const eventColumns = "id, ts, kind, session_id, payload"

// AppendEvent adds a row to the append-only audit log. The payload is
// marshalled to JSON; a nil payload stores an empty object.
func (s *Store) AppendEvent(ctx context.Context, kind, sessionID string, payload map[string]any) (*Event, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	blob, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO events (ts, kind, session_id, payload) VALUES (?, ?, ?, ?)`,
		formatTime(now),
		kind,
		nullableString(sessionID),
		string(blob),
	)
	if err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return &Event{
		ID:        id,
		Timestamp: now,
		Kind:      kind,
		SessionID: sessionID,
		Payload:   string(blob),
	}, nil
}

// EventsBySession returns the audit timeline for one session, oldest first.
func (s *Store) EventsBySession(ctx context.Context, sessionID string) ([]*Event, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+eventColumns+` FROM events WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// RecentEvents returns the newest events across all sessions, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		var (
			id        int64
			tsRaw     string
			kind      string
			sessionID sql.NullString
			payload   sql.NullString
		)
		if err := rows.Scan(&id, &tsRaw, &kind, &sessionID, &payload); err != nil {
			return nil, err
		}
		event := &Event{
			ID:        id,
			Kind:      kind,
			SessionID: sessionID.String,
			Payload:   payload.String,
		}
		if ts, err := parseTimeString(tsRaw); err == nil {
			event.Timestamp = ts
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
