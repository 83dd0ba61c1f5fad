// Package logging assembles the structured slog loggers used across tbag.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes attr helpers so components emit log lines with consistent keys
// (component, session_id, device_id, line). A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
