// Package provision implements the user lifecycle manager, the one
// component callers invoke to create, inspect, and delete VPN users.
//
// The manager keeps three state surfaces consistent: the persisted user
// store, the in-memory address pool, and the live peer table of the network
// interface. Creation sequences keypair -> address -> peer -> store and
// deletion runs the reverse order; every partial-failure path either rolls
// back (a failed peer registration releases the tentative address) or stops
// before committing (a failed peer removal keeps the record, since deleting
// bookkeeping for a possibly-live peer is worse than requiring a retry).
//
// One mutex spans each whole create/delete sequence. The pool and the store
// have no locking of their own; without the manager-level lock two
// concurrent creations could race the allocator onto the same address or
// interleave whole-document store rewrites.
package provision
