// Package state provides session state management.
package state

// Phase represents the session lifecycle phase.
type Phase int

const (
	PhaseInactive Phase = iota // No session running
	PhaseActive                // Session is tracking
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseInactive:
		return "inactive"
	case PhaseActive:
		return "active"
	default:
		return "unknown"
	}
}

// Mode describes who a session tracks.
type Mode int

const (
	ModeAllUsers     Mode = iota // Empty scope, everyone in the channel
	ModeSpecificUser             // Started with a single scoped user
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeAllUsers:
		return "all_users"
	case ModeSpecificUser:
		return "specific_user"
	default:
		return "unknown"
	}
}
