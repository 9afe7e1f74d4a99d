package member

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAnyRole(t *testing.T) {
	tests := []struct {
		name   string
		roles  []string
		wanted []string
		want   bool
	}{
		{"holds first", []string{"admin", "x"}, []string{"admin", "host"}, true},
		{"holds second", []string{"host"}, []string{"admin", "host"}, true},
		{"holds neither", []string{"x", "y"}, []string{"admin", "host"}, false},
		{"no roles", nil, []string{"admin"}, false},
		{"empty wanted role never matches", []string{""}, []string{""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAnyRole(tt.roles, tt.wanted...))
		})
	}
}
