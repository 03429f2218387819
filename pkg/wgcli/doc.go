// Package wgcli drives the live VPN interface through its command-line
// management tool.
//
// The PeerController interface is the only surface the provisioning manager
// sees, so the exec-based Runner can later be swapped for a native netlink
// binding without touching the lifecycle logic. Every invocation of the
// external tool is bounded by a timeout; a hung tool process surfaces as a
// command failure instead of stalling the calling request.
//
// None of the operations are idempotent against the underlying interface:
// adding an already-present peer replaces its configuration, and removing a
// peer that is not registered is an error from the tool. Callers own that
// contract.
package wgcli
