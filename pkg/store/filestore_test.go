package store

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "data", "users.json"))
	require.NoError(t, err)
	return s
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t)

	users, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NotNil(t, users)
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestStore(t)

	users := map[string]User{
		"alice": {
			ID:         "alice",
			Name:       "Alice",
			PrivateKey: "priv",
			PublicKey:  "pub",
			IP:         "10.8.0.2",
			AllowedIPs: "10.8.0.2/32",
		},
	}
	require.NoError(t, s.Save(users))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, users, loaded)
}

func TestSaveOverwritesWholeDocument(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save(map[string]User{"a": {ID: "a"}, "b": {ID: "b"}}))
	require.NoError(t, s.Save(map[string]User{"a": {ID: "a"}}))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
	assert.NotContains(t, loaded, "b")
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(map[string]User{"a": {ID: "a"}}))

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "users.json", entries[0].Name())
}

func TestLoadCorruptFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o600))

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrStorage)
}

func TestWatchReportsExternalWrite(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(map[string]User{}))

	var changes atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func() { changes.Add(1) })
	}()

	// Give the watcher a moment to register before mutating the file.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{}"), 0o600))

	assert.Eventually(t, func() bool {
		return changes.Load() > 0
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
