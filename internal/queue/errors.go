package queue

import "errors"

// ErrNotFound indicates the referenced run does not exist.
var ErrNotFound = errors.New("run not found")

// ErrConflict indicates a conditional status transition found the run in a
// different state than required. Callers treat this as control flow: direct
// claims surface it, oldest-first claims move to the next candidate, and
// finish/abort absorb it as a duplicate call.
var ErrConflict = errors.New("run status precondition failed")

// ErrValidation indicates a required field was missing or malformed. The store
// rejects the request before any mutation.
var ErrValidation = errors.New("invalid request")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err wraps ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
