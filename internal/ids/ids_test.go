package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	a := New()
	b := New()
	assert.Len(t, a, 24)
	assert.True(t, Valid(a))
	assert.NotEqual(t, a, b)
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"lowercase hex", "64b7f0c2a1e4d3b2c1a09f8e", true},
		{"uppercase hex", "64B7F0C2A1E4D3B2C1A09F8E", true},
		{"too short", "64b7f0c2a1e4d3b2c1a09f8", false},
		{"too long", "64b7f0c2a1e4d3b2c1a09f8e0", false},
		{"non hex", "zzb7f0c2a1e4d3b2c1a09f8e", false},
		{"empty", "", false},
		{"uuid", "1b4e28ba-2fa1-11d2-883f-0016d3cca427", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.in))
		})
	}
}
