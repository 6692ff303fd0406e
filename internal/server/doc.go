// Package server provides the optional HTTP status server.
//
// The published page is a static file, so the server is only a convenience
// for watching a monitor locally:
//
//   - "/" serves the last rendered page from disk
//   - "/api/accounts" returns the persisted account table
//   - "/api/accounts/{id}/history" returns recent probes when history is on
//   - "/healthz" reports liveness
//
// The server only reads; the monitor remains the single writer of every
// file. It shuts down gracefully on context cancellation with a 5-second
// timeout for in-flight requests.
package server
