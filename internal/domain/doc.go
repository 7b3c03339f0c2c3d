// Package domain defines the core entities and interfaces for streamscout.
//
// This package contains the records the fan-out engine reads (tracked
// subjects, watchlist items, user profiles), the transient values it builds
// per run (subject facts, messages, dispatch results, run reports) and the
// interfaces of its collaborators: the subject store, the metadata provider
// and the delivery provider. All interfaces accept context for cancellation.
package domain
