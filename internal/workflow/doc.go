// Package workflow coordinates guided-assembly sessions: claiming queued
// runs for kiosks, advancing through step sequences, terminal transitions,
// and keeping the output lines in sync with progress. All status changes go
// through the store's conditional updates; the event log is written only
// after a transition has committed.
package workflow
