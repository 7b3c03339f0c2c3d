// Package handler implements the HTTP surface.
//
// Endpoints:
// - GET /health: liveness plus the state of every job
// - POST /api/changes/releases: release change-feed events
// - POST /api/jobs/:name: run the episodes or staleness scan now
//
// Runs triggered over HTTP are synchronous; the response is the run report.
package handler
