package guard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleGuard_Check(t *testing.T) {
	g := NewRoleGuard("admin-role", "host-role")

	tests := []struct {
		name        string
		roles       []string
		wantAllowed bool
		wantCode    string
	}{
		{
			name:        "admin",
			roles:       []string{"member", "admin-role"},
			wantAllowed: true,
		},
		{
			name:        "host",
			roles:       []string{"host-role"},
			wantAllowed: true,
		},
		{
			name:        "no authorising role",
			roles:       []string{"member"},
			wantAllowed: false,
			wantCode:    "unauthorized",
		},
		{
			name:        "no roles at all",
			wantAllowed: false,
			wantCode:    "unauthorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := g.Check(context.Background(), Invocation{Command: "starttracking", Roles: tt.roles})
			assert.Equal(t, tt.wantAllowed, result.Allowed)
			assert.Equal(t, tt.wantCode, result.Code)
		})
	}
}

func TestGuildGuard_Check(t *testing.T) {
	g := NewGuildGuard("guild-1")

	assert.True(t, g.Check(context.Background(), Invocation{GuildID: "guild-1"}).Allowed)
	assert.Equal(t, Deny("wrong_guild"), g.Check(context.Background(), Invocation{GuildID: "guild-2"}))
	assert.Equal(t, Deny("wrong_guild"), g.Check(context.Background(), Invocation{}))
}

type countingGuard struct {
	result Result
	calls  int
}

func (g *countingGuard) Name() string          { return "counting" }
func (g *countingGuard) Description() string   { return "" }
func (g *countingGuard) ReturnCodes() []string { return []string{g.result.Code} }
func (g *countingGuard) Check(context.Context, Invocation) Result {
	g.calls++
	return g.result
}

func TestChain_Execute(t *testing.T) {
	first := &countingGuard{result: Allow()}
	second := &countingGuard{result: Deny("unauthorized")}
	third := &countingGuard{result: Deny("wrong_guild")}

	c := NewChain(first, second)
	c.Add(third)

	result := c.Execute(context.Background(), Invocation{})

	assert.Equal(t, Deny("unauthorized"), result)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls, "chain stops at the first denial")
	assert.Len(t, c.Guards(), 3)
}

func TestChain_EmptyAllows(t *testing.T) {
	assert.Equal(t, Allow(), NewChain().Execute(context.Background(), Invocation{}))
}

func TestGuards_DeclareReturnCodes(t *testing.T) {
	for _, g := range []Guard{NewRoleGuard("a"), NewGuildGuard("g")} {
		assert.NotEmpty(t, g.Name())
		assert.NotEmpty(t, g.Description())
		assert.Len(t, g.ReturnCodes(), 1)
	}
}
