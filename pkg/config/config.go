package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rget-dev/rget/pkg/optname"
)

func AddRootPersistentFlags(cmd *cobra.Command) error {
	cmd.PersistentFlags().IntP(optname.OptConcurrency, "c", runtime.GOMAXPROCS(0)*4, "Maximum number of chunks downloaded simultaneously")
	cmd.PersistentFlags().Int(optname.OptChunks, 0, "Exact number of chunks to split the download into, overriding the size table")
	cmd.PersistentFlags().Duration(optname.OptConnTimeout, 5*time.Second, "Timeout for establishing a connection, format is <number><unit>, e.g. 10s")
	cmd.PersistentFlags().BoolP(optname.OptForce, "f", false, "Force download, overwriting existing file")
	cmd.PersistentFlags().IntP(optname.OptRetries, "r", 0, "Number of transport-level retries per HTTP request")
	cmd.PersistentFlags().Bool(optname.OptRequireRange, false, "Fail instead of degrading to a single chunk when the server does not accept ranges")
	cmd.PersistentFlags().String(optname.OptPIDFile, "", "Write a locked PID file at the given path for the duration of the download")
	cmd.PersistentFlags().BoolP(optname.OptVerbose, "v", false, "Verbose mode (equivalent to --log-level debug)")
	cmd.PersistentFlags().String(optname.OptLoggingLevel, "info", "Log level (debug, info, warn, error)")

	viper.SetEnvPrefix("RGET")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		return fmt.Errorf("failed to bind persistent flags: %w", err)
	}

	// Intended for testing/benchmarking only, hidden from help
	for _, flag := range []string{optname.OptChunks, optname.OptRequireRange} {
		if err := cmd.PersistentFlags().MarkHidden(flag); err != nil {
			return fmt.Errorf("failed to hide flag %s: %w", flag, err)
		}
	}

	return nil
}

func PersistentStartupProcessFlags() error {
	if viper.GetBool(optname.OptVerbose) {
		viper.Set(optname.OptLoggingLevel, "debug")
	}
	setLogLevel(viper.GetString(optname.OptLoggingLevel))
	return nil
}

func setLogLevel(logLevel string) {
	switch logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
