package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "wizard", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"validate", "test", "show", "edit"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestStoreFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"show", "edit"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)

		driver := sub.Flags().Lookup("driver")
		require.NotNil(t, driver, name)
		assert.Equal(t, "sqlite3", driver.DefValue)
		assert.NotNil(t, sub.Flags().Lookup("db"), name)
		assert.NotNil(t, sub.Flags().Lookup("collection"), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "validate", "x.cue", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestNewLogger(t *testing.T) {
	quiet := newLogger(&RootOptions{}, nil)
	assert.False(t, quiet.Enabled(t.Context(), -4))

	verbose := newLogger(&RootOptions{Verbose: true}, nil)
	assert.True(t, verbose.Enabled(t.Context(), -4))
}
