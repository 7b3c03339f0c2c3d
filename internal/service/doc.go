// Package service contains the notification fan-out engine.
//
// The pieces are wired by the job drivers in package app:
//   - AudienceResolver: finds who cares about a subject (group by subject,
//     stale watchlist sampling, release matching)
//   - MetadataFetcher: per-run memoized metadata lookups
//   - eligibility functions: pure "should we notify now" decisions
//   - composers: deterministic message templates
//   - TokenCollector: flattens the delivery tokens of an audience
//   - Dispatcher: provider-sized batching and per-token outcome aggregation
//
// Nothing in this package writes to the subject store.
package service
