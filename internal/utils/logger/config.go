// internal/utils/logger/config.go
package logger

type Config struct {
	LogFile     string
	MaxSize     int  // megabytes
	MaxAge      int  // days
	MaxBackups  int  // rotated files kept
	Compress    bool // gzip rotated files
	Development bool
	// Console mirrors records to stdout. The operator console turns it off
	// because it owns the terminal.
	Console bool
}

// DefaultConfig returns the production logging setup.
func DefaultConfig() *Config {
	return &Config{
		LogFile:     "logs/agent.log",
		MaxSize:     100,
		MaxAge:      7,
		MaxBackups:  3,
		Compress:    true,
		Development: false,
		Console:     true,
	}
}
