// Package daemon coordinates the long-running tbag process and system
// integration points.
//
// It wires configuration, the session store, the workflow manager, and the
// output-line manager into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon owns the HTTP API surface kiosks
// talk to, keeps the local device's heartbeat fresh, and watches udev for
// GPIO chip hotplug so lines are swept back to a safe state.
//
// Keep orchestration logic here: session semantics live in workflow and
// queue while the daemon focuses on startup, shutdown, and wiring.
package daemon
