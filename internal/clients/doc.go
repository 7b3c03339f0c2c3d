// Package clients provides adapters for external services.
//
// This package contains adapters that implement domain interfaces for:
// - TMDB, the show metadata provider (next episode to air)
// - Firebase Cloud Messaging HTTP v1, the push delivery provider
// - a log-only delivery provider for dry runs
//
// All adapters support context for cancellation and timeout handling.
package clients
