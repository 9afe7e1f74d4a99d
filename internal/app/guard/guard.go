// Package guard provides the guard chain for command authorisation.
package guard

import "context"

// Invocation represents a command invocation to be authorised.
type Invocation struct {
	Command string
	GuildID string
	UserID  string
	Roles   []string // Role IDs the caller holds at invocation time
}

// Result represents the result of a guard check.
type Result struct {
	Allowed bool
	Code    string // e.g., "unauthorized", "wrong_guild"
}

// Allow returns an allowed result.
func Allow() Result {
	return Result{Allowed: true}
}

// Deny returns a denied result with the given code.
func Deny(code string) Result {
	return Result{Allowed: false, Code: code}
}

// Guard is the interface for command guards.
type Guard interface {
	// Name returns the guard name.
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this guard can return.
	ReturnCodes() []string
	// Check performs the guard check.
	Check(ctx context.Context, inv Invocation) Result
}
