// Package ipam manages the pool of client addresses inside the VPN subnet.
//
// A Pool is constructed from a CIDR subnet and a start address within it.
// Allocation scans host addresses in ascending order from the start address
// and hands out the first free one, so freed low addresses are reused before
// never-allocated high addresses and allocation sequences are reproducible.
//
// The Pool is a plain in-memory data structure with no locking of its own;
// the provisioning manager serializes access to it together with the user
// store under a single mutex.
package ipam
