package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckInjection(t *testing.T) {
	tests := []struct {
		name    string
		mention string
		bad     bool
	}{
		{"plain company", "Acme Corp", false},
		{"apostrophe in name", "O'Brien & Sons", false},
		{"classic tautology", "x' OR 1=1--", true},
		{"stacked statement", "'; DROP TABLE users--", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fingerprint, bad := checkInjection(tt.mention)
			assert.Equal(t, tt.bad, bad)
			if bad {
				assert.NotEmpty(t, fingerprint)
			}
		})
	}
}
