// Package entry provides the per-user accounting entry of a tracking session.
package entry

import "time"

// Entry is the accounting record of one tracked user.
// At most one interval is open at a time; Accumulated holds every closed one.
type Entry struct {
	UserID      string        // Discord user ID
	DisplayName string        // Label captured at the most recent update
	StartedAt   *time.Time    // Start of the open interval, nil while outside the channel
	Accumulated time.Duration // Time banked from closed intervals
}

// New creates an entry with an interval opened at now.
func New(userID, displayName string, now time.Time) *Entry {
	e := &Entry{
		UserID:      userID,
		DisplayName: displayName,
	}
	e.Open(now)
	return e
}

// Open starts a new interval at now. Banked time is kept.
func (e *Entry) Open(now time.Time) {
	t := now
	e.StartedAt = &t
}

// Close banks the open interval and clears it.
// Returns false when no interval is open.
func (e *Entry) Close(now time.Time) bool {
	if e.StartedAt == nil {
		return false
	}
	e.Accumulated += since(*e.StartedAt, now)
	e.StartedAt = nil
	return true
}

// IsOpen returns true while the user is accruing time.
func (e *Entry) IsOpen() bool {
	return e.StartedAt != nil
}

// Elapsed returns banked time plus the open interval, if any.
func (e *Entry) Elapsed(now time.Time) time.Duration {
	if e.StartedAt == nil {
		return e.Accumulated
	}
	return e.Accumulated + since(*e.StartedAt, now)
}

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	c := *e
	if e.StartedAt != nil {
		t := *e.StartedAt
		c.StartedAt = &t
	}
	return &c
}

// since clamps backwards clock steps to zero.
func since(start, now time.Time) time.Duration {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return d
}
