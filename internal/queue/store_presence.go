package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TouchPresence inserts or refreshes a device heartbeat.
func (s *Store) TouchPresence(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device_id is required", ErrValidation)
	}
	now := time.Now().UTC()
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO devices_presence (device_id, last_seen) VALUES (?, ?)
         ON CONFLICT(device_id) DO UPDATE SET last_seen = excluded.last_seen`,
		deviceID,
		formatTime(now),
	); err != nil {
		return fmt.Errorf("touch presence: %w", err)
	}
	return nil
}

// RemovePresence drops a device's heartbeat record. This is the only path
// that deletes presence rows; stale rows otherwise just stop counting as live.
func (s *Store) RemovePresence(ctx context.Context, deviceID string) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM devices_presence WHERE device_id = ?`, deviceID); err != nil {
		return fmt.Errorf("remove presence: %w", err)
	}
	return nil
}

// LiveDevices returns device ids whose last heartbeat is within timeout of
// now. Expiry is evaluated here, at query time; nothing evicts rows in the
// background.
func (s *Store) LiveDevices(ctx context.Context, timeout time.Duration) ([]string, error) {
	ctx = ensureContext(ctx)
	cutoff := time.Now().UTC().Add(-timeout)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT device_id FROM devices_presence WHERE last_seen >= ? ORDER BY device_id`,
		formatTime(cutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("query live devices: %w", err)
	}
	defer rows.Close()

	var devices []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		devices = append(devices, id)
	}
	return devices, rows.Err()
}

// RegisterDevice records a permanent device. Registration is idempotent; an
// existing record is left untouched.
func (s *Store) RegisterDevice(ctx context.Context, deviceID, description string) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device_id is required", ErrValidation)
	}
	now := time.Now().UTC()
	if _, err := s.execWithRetry(
		ctx,
		`INSERT OR IGNORE INTO devices (device_id, description, ts_added) VALUES (?, ?, ?)`,
		deviceID,
		nullableString(description),
		formatTime(now),
	); err != nil {
		return fmt.Errorf("register device: %w", err)
	}
	return nil
}

// ListDevices returns every permanently registered device.
func (s *Store) ListDevices(ctx context.Context) ([]*DeviceRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT device_id, description, ts_added FROM devices ORDER BY device_id`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []*DeviceRecord
	for rows.Next() {
		var (
			id          string
			description sql.NullString
			addedRaw    string
		)
		if err := rows.Scan(&id, &description, &addedRaw); err != nil {
			return nil, err
		}
		record := &DeviceRecord{DeviceID: id, Description: description.String}
		if added, err := parseTimeString(addedRaw); err == nil {
			record.AddedAt = added
		}
		devices = append(devices, record)
	}
	return devices, rows.Err()
}
