package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"batman", "x-men"}, SplitAndTrim(" batman , x-men ", ","))
	assert.Equal(t, []string{"a", "a"}, SplitAndTrim("a,,a", ","))
	assert.Empty(t, SplitAndTrim(" , ,", ","))
	assert.Nil(t, SplitAndTrim("   ", ","))
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 30, ParseIntDefault("", 30))
	assert.Equal(t, 30, ParseIntDefault("abc", 30))
	assert.Equal(t, 7, ParseIntDefault("7", 30))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	// "é" is two bytes; cutting inside it backs off to the rune start.
	assert.Equal(t, "a", Truncate("aé", 2))
}
