// Package storage provides the subject store backends.
//
// BoltStore keeps tracked subjects, watchlist items and user profiles in an
// embedded BoltHold database; MongoStore reads the same records from a
// MongoDB database laid out like the mobile app's document store. Both
// implement domain.SubjectStore. Only BoltStore exposes write operations,
// used by fixtures, tests and the storeview tool: the fan-out engine itself
// never writes.
package storage
