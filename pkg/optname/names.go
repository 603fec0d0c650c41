// Package optname holds the canonical names of all CLI options so that flag
// registration and viper lookups cannot drift apart.
package optname

const (
	OptChunks       = "chunks"
	OptConcurrency  = "concurrency"
	OptConnTimeout  = "connect-timeout"
	OptContinue     = "continue"
	OptExtract      = "extract"
	OptForce        = "force"
	OptLoggingLevel = "log-level"
	OptPIDFile      = "pid-file"
	OptRequireRange = "require-range"
	OptRetries      = "retries"
	OptStage        = "stage"
	OptVerbose      = "verbose"
)
