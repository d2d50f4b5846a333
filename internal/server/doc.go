// Package server provides the HTTP transport for the mqmon dashboard and API.
//
// This package is internal to mqmon and handles all HTTP concerns:
//
//   - Dashboard serving: Serves the embedded chart page at "/"
//   - Query: JSON array of retained samples at "/data"
//   - Ingest: JSON readings posted by the device to "/ingest"
//   - Live stream: Server-Sent Events for each new sample at "/api/stream"
//   - Operations: Prometheus metrics at "/metrics" and a liveness probe at "/healthz"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
