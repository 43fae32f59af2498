// Package api hosts the read-only status server over a target's checkpoints.
// Routes:
//   - GET /healthz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/summary for the last finished run.
//   - GET /v1/periods and /v1/periods/{period} for per-period progress.
package api
