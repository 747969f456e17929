package cli

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-ten", truncate("exactly-ten", 11))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijk", 10))
}

func TestTruncateMultiByte(t *testing.T) {
	// URLs with non-ASCII hosts must not be cut mid-rune.
	s := "https://bücher.example/münchen/straße"
	got := truncate(s, 20)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 20, utf8.RuneCountInString(got))
	assert.Equal(t, "https://bücher.ex...", got)
}
