package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rget-dev/rget/pkg/optname"
)

func TestSetLogLevel(t *testing.T) {
	testCases := []struct {
		name     string
		logLevel string
		expected string
	}{
		{"debug", "debug", "debug"},
		{"info", "info", "info"},
		{"warn", "warn", "warn"},
		{"error", "error", "error"},
		{"unknown", "bogus", "info"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setLogLevel(tc.logLevel)
			assert.Equal(t, tc.expected, zerolog.GlobalLevel().String())
		})
	}
}

func TestAddRootPersistentFlagsDefaults(t *testing.T) {
	defer viper.Reset()
	cmd := &cobra.Command{Use: "test"}
	require.NoError(t, AddRootPersistentFlags(cmd))

	assert.Equal(t, runtime.GOMAXPROCS(0)*4, viper.GetInt(optname.OptConcurrency))
	assert.Equal(t, 0, viper.GetInt(optname.OptChunks))
	assert.Equal(t, 0, viper.GetInt(optname.OptRetries))
	assert.Equal(t, 5*time.Second, viper.GetDuration(optname.OptConnTimeout))
	assert.Equal(t, "info", viper.GetString(optname.OptLoggingLevel))
	assert.False(t, viper.GetBool(optname.OptForce))
	assert.False(t, viper.GetBool(optname.OptRequireRange))
}

func TestAddRootPersistentFlagsHidesTestOnlyFlags(t *testing.T) {
	defer viper.Reset()
	cmd := &cobra.Command{Use: "test"}
	require.NoError(t, AddRootPersistentFlags(cmd))

	for _, name := range []string{optname.OptChunks, optname.OptRequireRange} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag)
		assert.True(t, flag.Hidden)
	}
}

func TestVerbosePromotesLogLevel(t *testing.T) {
	defer viper.Reset()
	viper.Set(optname.OptVerbose, true)
	viper.Set(optname.OptLoggingLevel, "info")

	require.NoError(t, PersistentStartupProcessFlags())
	assert.Equal(t, "debug", viper.GetString(optname.OptLoggingLevel))
}
