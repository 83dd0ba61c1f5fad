// Package api defines the transport DTOs for the daemon's HTTP surface and
// the SessionService facade that maps them onto the store and workflow.
package api
