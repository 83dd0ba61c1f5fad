// Command tbag is the operator CLI for the guided-assembly daemon. It talks
// to tbagd over the HTTP API and renders queue, device, and event state.
package main
