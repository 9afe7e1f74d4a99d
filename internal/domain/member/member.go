// Package member provides the guild member view used by tracking and reporting.
package member

// Member is a guild member as seen at lookup time.
type Member struct {
	ID    string   // Discord user ID
	Tag   string   // User tag used as report label
	Roles []string // Role IDs held in the guild
}

// UserRef identifies a user named in a command option.
type UserRef struct {
	ID  string
	Tag string
}

// HasAnyRole returns true if the member holds at least one of the given roles.
func HasAnyRole(roles []string, wanted ...string) bool {
	for _, r := range roles {
		for _, w := range wanted {
			if w != "" && r == w {
				return true
			}
		}
	}
	return false
}
