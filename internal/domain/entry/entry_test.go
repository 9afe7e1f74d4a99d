package entry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 10, 20, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	e := New("user-1", "alice", t0)

	assert.Equal(t, "user-1", e.UserID)
	assert.Equal(t, "alice", e.DisplayName)
	require.NotNil(t, e.StartedAt)
	assert.Equal(t, t0, *e.StartedAt)
	assert.Equal(t, time.Duration(0), e.Accumulated)
	assert.True(t, e.IsOpen())
}

func TestEntry_CloseBanksInterval(t *testing.T) {
	e := New("user-1", "alice", t0)

	ok := e.Close(t0.Add(90 * time.Second))

	assert.True(t, ok)
	assert.False(t, e.IsOpen())
	assert.Nil(t, e.StartedAt)
	assert.Equal(t, 90*time.Second, e.Accumulated)
}

func TestEntry_CloseWithoutOpenInterval(t *testing.T) {
	e := &Entry{UserID: "user-1", Accumulated: time.Minute}

	ok := e.Close(t0)

	assert.False(t, ok, "closing twice must be a no-op")
	assert.Equal(t, time.Minute, e.Accumulated)
}

func TestEntry_ReopenKeepsBankedTime(t *testing.T) {
	e := New("user-1", "alice", t0)
	e.Close(t0.Add(5 * time.Minute))

	e.Open(t0.Add(20 * time.Minute))
	e.Close(t0.Add(27 * time.Minute))

	assert.Equal(t, 12*time.Minute, e.Accumulated)
}

func TestEntry_Elapsed(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		now   time.Time
		want  time.Duration
	}{
		{
			name:  "closed",
			entry: Entry{Accumulated: 3 * time.Minute},
			now:   t0.Add(time.Hour),
			want:  3 * time.Minute,
		},
		{
			name:  "open",
			entry: Entry{Accumulated: 3 * time.Minute, StartedAt: &t0},
			now:   t0.Add(2 * time.Minute),
			want:  5 * time.Minute,
		},
		{
			name:  "clock stepped backwards",
			entry: Entry{Accumulated: 3 * time.Minute, StartedAt: &t0},
			now:   t0.Add(-time.Minute),
			want:  3 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.Elapsed(tt.now))
		})
	}
}

func TestEntry_Clone(t *testing.T) {
	e := New("user-1", "alice", t0)
	c := e.Clone()

	e.Close(t0.Add(time.Minute))

	require.NotNil(t, c.StartedAt, "clone must not share the interval pointer")
	assert.Equal(t, time.Duration(0), c.Accumulated)
}
