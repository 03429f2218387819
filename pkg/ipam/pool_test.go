package ipam

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool(t *testing.T) {
	tests := []struct {
		name    string
		subnet  string
		start   string
		wantErr bool
	}{
		{"valid", "10.8.0.0/24", "10.8.0.2", false},
		{"unmasked subnet", "10.8.0.5/24", "10.8.0.2", false},
		{"start outside subnet", "10.8.0.0/24", "10.9.0.2", true},
		{"bad subnet", "not-a-subnet", "10.8.0.2", true},
		{"bad start", "10.8.0.0/24", "nope", true},
		{"ipv6 subnet", "fd00::/64", "fd00::2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPool(tt.subnet, tt.start)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAllocateSequential(t *testing.T) {
	pool, err := NewPool("10.8.0.0/24", "10.8.0.2")
	require.NoError(t, err)

	want := []string{"10.8.0.2", "10.8.0.3", "10.8.0.4"}
	for _, expected := range want {
		addr, err := pool.Allocate()
		require.NoError(t, err)
		assert.Equal(t, expected, addr.String())
	}
	assert.Equal(t, 3, pool.Used())
}

func TestAllocateSkipsStart(t *testing.T) {
	// Start at .10: .1 through .9 must never be handed out.
	pool, err := NewPool("10.8.0.0/24", "10.8.0.10")
	require.NoError(t, err)

	addr, err := pool.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "10.8.0.10", addr.String())
}

func TestReleaseReusesLowestAddress(t *testing.T) {
	pool, err := NewPool("10.8.0.0/24", "10.8.0.2")
	require.NoError(t, err)

	first, err := pool.Allocate()
	require.NoError(t, err)
	_, err = pool.Allocate()
	require.NoError(t, err)

	require.NoError(t, pool.Release(first))

	next, err := pool.Allocate()
	require.NoError(t, err)
	assert.Equal(t, first, next, "freed low address should be reused before fresh high addresses")
}

func TestReleaseNotAllocated(t *testing.T) {
	pool, err := NewPool("10.8.0.0/24", "10.8.0.2")
	require.NoError(t, err)

	err = pool.Release(netip.MustParseAddr("10.8.0.2"))
	assert.ErrorIs(t, err, ErrNotAllocated)
}

func TestPoolExhausted(t *testing.T) {
	// A /30 has exactly two host addresses.
	pool, err := NewPool("10.8.0.0/30", "10.8.0.1")
	require.NoError(t, err)

	_, err = pool.Allocate()
	require.NoError(t, err)
	_, err = pool.Allocate()
	require.NoError(t, err)

	_, err = pool.Allocate()
	assert.ErrorIs(t, err, ErrPoolExhausted)

	// Releasing makes the pool usable again.
	require.NoError(t, pool.Release(netip.MustParseAddr("10.8.0.1")))
	addr, err := pool.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "10.8.0.1", addr.String())
}

func TestMarkUsed(t *testing.T) {
	pool, err := NewPool("10.8.0.0/24", "10.8.0.2")
	require.NoError(t, err)

	require.NoError(t, pool.MarkUsed(netip.MustParseAddr("10.8.0.2")))

	// Seeded addresses are skipped by the allocator.
	addr, err := pool.Allocate()
	require.NoError(t, err)
	assert.Equal(t, "10.8.0.3", addr.String())

	assert.Error(t, pool.MarkUsed(netip.MustParseAddr("10.8.0.2")), "duplicate seed")
	assert.Error(t, pool.MarkUsed(netip.MustParseAddr("192.168.1.1")), "outside subnet")
}

func TestCapacityAndFree(t *testing.T) {
	pool, err := NewPool("10.8.0.0/24", "10.8.0.2")
	require.NoError(t, err)

	assert.Equal(t, 254, pool.Capacity())
	assert.Equal(t, 254, pool.Free())

	_, err = pool.Allocate()
	require.NoError(t, err)
	assert.Equal(t, 253, pool.Free())
	assert.Equal(t, 1, pool.Used())
}

func TestAllocateDeterministic(t *testing.T) {
	run := func() []string {
		pool, err := NewPool("10.8.0.0/28", "10.8.0.2")
		require.NoError(t, err)
		var got []string
		for i := 0; i < 5; i++ {
			addr, err := pool.Allocate()
			require.NoError(t, err)
			got = append(got, addr.String())
		}
		require.NoError(t, pool.Release(netip.MustParseAddr("10.8.0.3")))
		addr, err := pool.Allocate()
		require.NoError(t, err)
		got = append(got, addr.String())
		return got
	}

	assert.Equal(t, run(), run(), "allocation sequences must be reproducible")
}
