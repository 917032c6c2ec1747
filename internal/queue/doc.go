// Package queue holds the task registry.
//
// A Task tracks one uploaded video from validation through subtitle
// generation. Store is the only owner of the canonical record: callers read
// copies through Get and List and change a task only through Update, which
// applies a mutation atomically and bumps UpdatedAt and Version. Identifiers
// are issued from a single monotonic sequence.
//
// Two backends implement Store: MemoryStore (the default) and SQLiteStore,
// which persists tasks across restarts and uses the version column for
// optimistic compare-and-update. The schema version lives in PRAGMA
// user_version; a database stamped with another version is refused rather
// than migrated.
package queue
