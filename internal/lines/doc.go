// Package lines manages the kiosk's indicator output lines.
//
// A Manager enforces the exclusivity rule: at most one line is driven high at
// any time, and the previous line is always released before a new one is
// acquired. Hardware faults never surface to callers as errors; the manager
// degrades to the safe state where no line is active and logs what happened.
// ForceResetAll sweeps the full set of known lines low and is run at claim,
// finish, abort, and daemon startup so crashes cannot leave stale lights on.
package lines
