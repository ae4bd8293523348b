package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVector(t *testing.T) {
	v, err := parseVector("0.9, 0.1")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.9, 0.1}, v)

	_, err = parseVector("0.9,abc")
	require.Error(t, err)
}

func TestRootCommandWiring(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"ingest", "search", "rebuild", "info"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("snapshot"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("metric"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("index"))
}
