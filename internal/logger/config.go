// internal/logger/config.go
package logger

import (
	"strings"

	"github.com/rovshanmuradov/launchpad-curve/internal/config"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogFile     string
	Level       zapcore.Level
	MaxSize     int  // megabytes
	MaxAge      int  // days
	MaxBackups  int  // rotated files kept
	Compress    bool // gzip rotated files
	Development bool
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() *Config {
	return &Config{
		LogFile:    config.DefaultLogFile,
		Level:      zapcore.InfoLevel,
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
}

// FromConfig converts the log section of the application config. The debug
// flag forces development mode.
func FromConfig(lc config.LogConfig, debug bool) *Config {
	cfg := &Config{
		LogFile:     lc.File,
		Level:       zapcore.InfoLevel,
		MaxSize:     lc.MaxSizeMB,
		MaxAge:      lc.MaxAgeDays,
		MaxBackups:  lc.MaxBackups,
		Compress:    lc.Compress,
		Development: lc.Development || debug,
	}
	if lvl, err := zapcore.ParseLevel(strings.ToLower(lc.Level)); err == nil {
		cfg.Level = lvl
	}
	if cfg.Development {
		cfg.Level = zapcore.DebugLevel
	}
	return cfg
}
