// Package logging builds the run logger. Each run writes to the console and
// to a timestamped file under the logs directory, so a failed cron run can be
// inspected afterwards.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger that tees to stdout and to logs/<timestamp>.log,
// plus the path of the log file it opened.
func New(logDir, level string) (*zap.Logger, string, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, time.Now().Format("20060102-150405")+".log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("opening log file: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := parseLevel(level)
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), lvl),
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), lvl),
	)

	return zap.New(core), logPath, nil
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *zap.Logger {
	return zap.NewNop()
}

func parseLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
