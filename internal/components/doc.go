// Package components manages the shared component library: reusable parts
// that project recipes reference, each optionally mapped to one of the 23
// output lines on the kiosk's connector.
package components
