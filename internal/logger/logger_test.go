package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rovshanmuradov/launchpad-curve/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestFromConfig(t *testing.T) {
	lc := config.LogConfig{
		Level:      "WARN",
		File:       "x.log",
		MaxSizeMB:  10,
		MaxAgeDays: 2,
		MaxBackups: 1,
	}

	cfg := FromConfig(lc, false)
	assert.Equal(t, zapcore.WarnLevel, cfg.Level)
	assert.Equal(t, "x.log", cfg.LogFile)
	assert.Equal(t, 10, cfg.MaxSize)
	assert.False(t, cfg.Development)

	debug := FromConfig(lc, true)
	assert.True(t, debug.Development)
	assert.Equal(t, zapcore.DebugLevel, debug.Level)
}

func TestNew_WritesConsoleAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curvectl.log")
	cfg := DefaultConfig()
	cfg.LogFile = path

	var console bytes.Buffer
	log, err := newLogger(cfg, zapcore.AddSync(&console))
	require.NoError(t, err)

	log.WithComponent("engine").Info("Curve created", zap.Uint64("virtual_sol_reserves", 30))
	log.Debug("hidden at info level")
	require.NoError(t, log.Close())

	assert.Contains(t, console.String(), "Curve created")
	assert.NotContains(t, console.String(), "hidden at info level")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	require.NotEmpty(t, line)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, float64(30), entry["virtual_sol_reserves"])
	assert.Contains(t, entry, "timestamp")
}

func TestWithOperation_AddsCorrelationID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "op.log")
	cfg.Development = true
	cfg.Level = zapcore.DebugLevel

	var console bytes.Buffer
	log, err := newLogger(cfg, zapcore.AddSync(&console))
	require.NoError(t, err)
	defer log.Close()

	end := log.TrackPerformance("simulate")
	end()

	out := console.String()
	assert.Contains(t, out, "Starting operation")
	assert.Contains(t, out, "Operation completed")
	assert.Contains(t, out, "correlation_id")
}

func TestNew_RequiresFile(t *testing.T) {
	_, err := New(&Config{})
	require.Error(t, err)
}

func TestPrettyEncoder(t *testing.T) {
	var console bytes.Buffer
	core := zapcore.NewCore(PrettyEncoder(), zapcore.AddSync(&console), zapcore.DebugLevel)
	zap.New(core).Named("curve_engine").Warn("Trade rejected", zap.String("reason", "slippage"))

	out := console.String()
	assert.Contains(t, out, ColorYellow+"[WARN]"+ColorReset)
	assert.Contains(t, out, "curve_engine")
	assert.Contains(t, out, "Trade rejected")
	assert.Contains(t, out, `"reason": "slippage"`)
}
