package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePin(t *testing.T) {
	cases := []struct{ input, want string }{
		{"123456", "123456"},
		{"12 34-56", "123456"},
		{"abc", ""},
		{"1a2b3c", "123"},
		{"١٢٣", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SanitizePin(c.input), "input: %q", c.input)
	}
}

func TestValidPin(t *testing.T) {
	assert.True(t, ValidPin("000000"))
	assert.True(t, ValidPin("123456"))
	assert.False(t, ValidPin("12345"))
	assert.False(t, ValidPin("1234567"))
	assert.False(t, ValidPin("12345a"))
	assert.False(t, ValidPin(""))
}
