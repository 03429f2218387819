package provision

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awgman/awgman/pkg/observability"
)

func TestNewResyncerRejectsBadSchedule(t *testing.T) {
	f := newFixture(t)
	logger := observability.NewLogger(observability.InfoLevel, &bytes.Buffer{})

	_, err := NewResyncer(f.manager, "not a schedule", logger)
	assert.Error(t, err)
}

func TestResyncerRunsOnSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	logger := observability.NewLogger(observability.InfoLevel, &bytes.Buffer{})

	_, _, err := f.manager.CreateUser(ctx, "a", "")
	require.NoError(t, err)

	// Wipe the fake interface; the scheduled pass should restore it.
	f.peers.mu.Lock()
	f.peers.peers = map[string]string{}
	f.peers.mu.Unlock()

	r, err := NewResyncer(f.manager, "@every 100ms", logger)
	require.NoError(t, err)
	r.Start()
	defer r.Stop(context.Background())

	assert.Eventually(t, func() bool {
		return f.peers.count() == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestResyncerStop(t *testing.T) {
	f := newFixture(t)
	logger := observability.NewLogger(observability.InfoLevel, &bytes.Buffer{})

	r, err := NewResyncer(f.manager, "@every 1h", logger)
	require.NoError(t, err)
	r.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, r.Stop(ctx))
}
