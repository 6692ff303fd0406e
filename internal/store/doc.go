// Package store persists the account table between runs.
//
// The main components are:
//
//   - [Store]: Interface for loading and saving an [account.Table]
//   - [FileStore]: JSON file implementation with atomic whole-table writes
//   - [MemoryStore]: In-memory implementation for tests and dry runs
//   - [Merge]: Pure function folding a run's probe results into a table
//
// A table is owned by exactly one run at a time. Load returns a private copy
// and Save replaces the stored table wholesale; there are no partial writes.
package store
