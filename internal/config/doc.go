// Package config loads, normalizes, and validates tbag configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// daemon and CLI need: data and content directories, the API bind address, the
// kiosk device identity, and the GPIO line driver selection.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
