package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vctrack/internal/domain/entry"
)

var t0 = time.Date(2025, 1, 10, 20, 0, 0, 0, time.UTC)

func ids(entries []*entry.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.UserID)
	}
	return out
}

func TestEntryRegistry_InsertionOrder(t *testing.T) {
	r := NewEntryRegistry()
	r.Put(entry.New("c", "carol", t0))
	r.Put(entry.New("a", "alice", t0))
	r.Put(entry.New("b", "bob", t0))

	assert.Equal(t, []string{"c", "a", "b"}, ids(r.Snapshot()))
	assert.Equal(t, 3, r.Len())
}

func TestEntryRegistry_PutReplacesInPlace(t *testing.T) {
	r := NewEntryRegistry()
	r.Put(entry.New("a", "alice", t0))
	r.Put(entry.New("b", "bob", t0))

	old, err := r.Get("a")
	require.NoError(t, err)
	old.Close(t0.Add(time.Hour))

	r.Put(entry.New("a", "alice-renamed", t0.Add(2*time.Hour)))

	assert.Equal(t, []string{"a", "b"}, ids(r.Snapshot()))
	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "alice-renamed", got.DisplayName)
	assert.Equal(t, time.Duration(0), got.Accumulated)
}

func TestEntryRegistry_Get(t *testing.T) {
	r := NewEntryRegistry()

	_, err := r.Get("missing")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestEntryRegistry_SnapshotIsDetached(t *testing.T) {
	r := NewEntryRegistry()
	r.Put(entry.New("a", "alice", t0))

	snap := r.Snapshot()
	snap[0].Close(t0.Add(time.Minute))

	live, err := r.Get("a")
	require.NoError(t, err)
	assert.True(t, live.IsOpen())
	assert.Equal(t, 1, r.OpenCount())
}

func TestEntryRegistry_Reset(t *testing.T) {
	r := NewEntryRegistry()
	r.Put(entry.New("a", "alice", t0))
	r.Put(entry.New("b", "bob", t0))

	r.Reset()

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Snapshot())
	_, err := r.Get("a")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	r.Put(entry.New("b", "bob", t0))
	assert.Equal(t, []string{"b"}, ids(r.Snapshot()))
}
