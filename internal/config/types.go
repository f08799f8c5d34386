package config

import "time"

// Defaults
const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 7664
	DefaultLogLevel       = "info"
	DefaultStrategy       = "atomic"
	DefaultRequestTimeout = 0 // no timeout; a hung editor blocks the dispatch
	DefaultDedupCacheSize = 128
	DefaultLineCount      = 10000
	DefaultBenchRounds    = 100
)

// Config is the shared configuration for foldsync and editord
type Config struct {
	// EditorURL is the WebSocket endpoint of the editor process
	EditorURL string `json:"editorUrl"`
	// Strategy selects the dispatch strategy
	Strategy string `json:"strategy"`
	// LogLevel is one of debug, info, warn, error
	LogLevel string `json:"logLevel"`
	// RequestTimeout bounds one dispatch cycle in milliseconds.
	// 0 means no timeout.
	RequestTimeout int `json:"requestTimeout"`
	// DedupCacheSize is the capacity of the applied-signature cache
	DedupCacheSize int `json:"dedupCacheSize"`
	// BenchRounds is the number of dispatch cycles per strategy in
	// benchmark mode
	BenchRounds int `json:"benchRounds"`
	// Listen configures the editord server
	Listen ListenConfig `json:"listen"`
}

// ListenConfig configures the editord endpoint and emulated buffer
type ListenConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// LineCount is the emulated buffer size; folds past it are rejected.
	// 0 means unbounded.
	LineCount int `json:"lineCount"`
}

// GetRequestTimeout returns the request timeout as a duration
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}
