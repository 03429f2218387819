package ipam

import (
	"errors"
	"fmt"
	"net/netip"
)

// ErrPoolExhausted is returned by Allocate when every host address from the
// start address to the end of the subnet is in use.
var ErrPoolExhausted = errors.New("address pool exhausted")

// ErrNotAllocated is returned by Release for an address that is not marked used.
var ErrNotAllocated = errors.New("address not allocated")

// Pool tracks which host addresses of a subnet are in use.
type Pool struct {
	subnet netip.Prefix
	start  netip.Addr
	used   map[netip.Addr]struct{}
}

// NewPool creates a pool over the given IPv4 subnet. Addresses below start
// are never handed out; start must be a host address inside the subnet.
func NewPool(subnet, start string) (*Pool, error) {
	prefix, err := netip.ParsePrefix(subnet)
	if err != nil {
		return nil, fmt.Errorf("invalid subnet %q: %w", subnet, err)
	}
	prefix = prefix.Masked()
	if !prefix.Addr().Is4() {
		return nil, fmt.Errorf("subnet %q is not IPv4", subnet)
	}

	startAddr, err := netip.ParseAddr(start)
	if err != nil {
		return nil, fmt.Errorf("invalid start address %q: %w", start, err)
	}
	if !prefix.Contains(startAddr) {
		return nil, fmt.Errorf("start address %s is outside subnet %s", startAddr, prefix)
	}

	return &Pool{
		subnet: prefix,
		start:  startAddr,
		used:   make(map[netip.Addr]struct{}),
	}, nil
}

// Allocate returns the lowest free host address at or above the start
// address, marking it used. It fails with ErrPoolExhausted when the scan
// reaches the end of the subnet with no free address left.
func (p *Pool) Allocate() (netip.Addr, error) {
	last := lastAddr(p.subnet)
	for addr := p.subnet.Addr().Next(); addr.Less(last); addr = addr.Next() {
		if addr.Less(p.start) {
			continue
		}
		if _, taken := p.used[addr]; taken {
			continue
		}
		p.used[addr] = struct{}{}
		return addr, nil
	}
	return netip.Addr{}, ErrPoolExhausted
}

// Release marks an address free again. Releasing an address that is not
// currently allocated is reported as ErrNotAllocated.
func (p *Pool) Release(addr netip.Addr) error {
	if _, ok := p.used[addr]; !ok {
		return fmt.Errorf("%w: %s", ErrNotAllocated, addr)
	}
	delete(p.used, addr)
	return nil
}

// MarkUsed seeds the pool with an address already assigned in persisted
// state. It rejects addresses outside the subnet and duplicates.
func (p *Pool) MarkUsed(addr netip.Addr) error {
	if !p.subnet.Contains(addr) {
		return fmt.Errorf("address %s is outside subnet %s", addr, p.subnet)
	}
	if _, ok := p.used[addr]; ok {
		return fmt.Errorf("address %s already in use", addr)
	}
	p.used[addr] = struct{}{}
	return nil
}

// Capacity returns the total number of host addresses in the subnet,
// excluding the network and broadcast addresses.
func (p *Pool) Capacity() int {
	bits := p.subnet.Bits()
	size := 1 << (32 - bits)
	if size < 4 {
		return 0
	}
	return size - 2
}

// Used returns the number of addresses currently allocated.
func (p *Pool) Used() int {
	return len(p.used)
}

// Free returns the number of host addresses not currently allocated.
func (p *Pool) Free() int {
	return p.Capacity() - len(p.used)
}

// lastAddr returns the broadcast address of an IPv4 prefix.
func lastAddr(prefix netip.Prefix) netip.Addr {
	a4 := prefix.Addr().As4()
	bits := prefix.Bits()
	for i := bits; i < 32; i++ {
		a4[i/8] |= 1 << (7 - i%8)
	}
	return netip.AddrFrom4(a4)
}
