// Package store persists user records as a single JSON document.
//
// The file is the whole truth: every mutation rewrites the entire document,
// via a temp file and an atomic rename so a crash can never leave a
// truncated or interleaved store behind. The provisioning manager is the
// only writer and serializes Save calls under its own lock; the store itself
// does not lock.
//
// A Watcher can observe external edits to the file (operators poking at
// users.json by hand) and report them; the running service never reloads
// behind the manager's back.
package store
