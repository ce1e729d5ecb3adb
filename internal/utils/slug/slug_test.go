package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromTitle(t *testing.T) {
	tests := map[string]string{
		"Soup":                   "soup",
		"Tomato  Soup":           "tomato_soup",
		"  Grandma's Apple Pie ": "grandma's_apple_pie",
		"Pad\tThai\nNoodles":     "pad_thai_noodles",
	}
	for in, want := range tests {
		assert.Equal(t, want, FromTitle(in), in)
	}
}
