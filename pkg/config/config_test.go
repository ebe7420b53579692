package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
environment: test
marketplace:
  base_url: http://localhost:9090
`

func TestParseDefaultsMinScore(t *testing.T) {
	c, err := Parse([]byte(baseYAML))
	require.NoError(t, err)
	assert.Equal(t, 10.0, c.DealsMinScore())
	assert.Equal(t, 8, c.Deals.Workers)
}

func TestParseKeepsZeroMinScore(t *testing.T) {
	c, err := Parse([]byte(baseYAML + "deals:\n  min_score: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.DealsMinScore())
}

func TestParseRejectsOutOfRangeMinScore(t *testing.T) {
	_, err := Parse([]byte(baseYAML + "deals:\n  min_score: 150\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deals.min_score")
}
