// Package app wires the fan-out engine into a running process.
//
// The App type loads configuration, opens the subject store once, builds
// the metadata and delivery clients and manages:
// - the cron Orchestrator that triggers the episode and staleness scans
// - the fiber HTTP server (change feed, manual triggers, health)
// - graceful shutdown
//
// Jobs holds the three job drivers. Every execution goes through Runner,
// which owns the run state machine and produces a domain.RunReport.
package app
