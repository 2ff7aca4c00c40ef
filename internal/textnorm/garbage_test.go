package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsGarbage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"too short", "ok", true},
		{"short after trim", "   ab   ", true},
		{"single token", "tuyệtvời", true},
		{"mostly digits", "123 456 789 000", true},
		{"mostly symbols", "?? !! ## a", true},
		{"emoji only", "😀😀 😀😀", true},
		{"vietnamese sentence", "Thầy dạy rất nhiệt tình", false},
		{"unaccented sentence", "wifi truong qua yeu", false},
		{"mixed with numbers", "phòng 301 nóng quá", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGarbage(tt.in))
		})
	}
}
