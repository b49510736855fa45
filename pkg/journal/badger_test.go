package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestBadgerStore_AppendAndRecent(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Signature: "sig-1", Status: StatusConfirmed, SubmittedAt: base},
		{Signature: "sig-2", Status: StatusRejected, Reason: "blockhash expired", SubmittedAt: base.Add(time.Second)},
		{Signature: "sig-3", Status: StatusConfirmed, SubmittedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		require.NoError(t, store.Append(e))
	}

	got, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Newest first.
	assert.Equal(t, "sig-3", got[0].Signature)
	assert.Equal(t, "sig-2", got[1].Signature)
	assert.Equal(t, "sig-1", got[2].Signature)
	assert.Equal(t, StatusRejected, got[1].Status)
	assert.Equal(t, "blockhash expired", got[1].Reason)
}

func TestBadgerStore_RecentLimit(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(Entry{
			Signature:   "sig",
			Status:      StatusConfirmed,
			SubmittedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := store.Recent(2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = store.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBadgerStore_AppendFillsTimestamp(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Append(Entry{Signature: "sig", Status: StatusConfirmed}))

	got, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].SubmittedAt.IsZero())
}

func TestBadgerStore_Encrypted(t *testing.T) {
	dir := t.TempDir()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	store, err := NewBadgerStore(dir, key)
	require.NoError(t, err)
	require.NoError(t, store.Append(Entry{Signature: "sig", Status: StatusConfirmed}))
	require.NoError(t, store.Close())

	// Reopening without the key must fail.
	_, err = NewBadgerStore(dir, nil)
	require.Error(t, err)

	store, err = NewBadgerStore(dir, key)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sig", got[0].Signature)
}
