// Package logger holds the process-wide slog logger used by the command
// line tools. Library packages never use it; they take a *slog.Logger in
// their config instead.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the global logger instance. It discards all output until Init is
// called.
var L = slog.New(slog.DiscardHandler)

const (
	logPrefix     = "mmdriver-"
	logSuffix     = ".log"
	retentionDays = 30
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Level   slog.Level // Minimum log level
	JSON    bool       // JSON records instead of logfmt text
	Output  io.Writer  // Destination when LogDir is empty. Default: os.Stderr
	LogDir  string     // If set, log to a dated file in this directory
}

// Init configures logging and returns a function that releases any log file.
func Init(opts Options) (func() error, error) {
	noop := func() error { return nil }
	if !opts.Enabled {
		L = slog.New(slog.DiscardHandler)
		return noop, nil
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	closer := noop

	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return nil, err
		}
		// Clean up old logs (best-effort, ignore errors)
		cleanOldLogs(opts.LogDir, time.Now())

		filename := filepath.Join(opts.LogDir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		out, closer = f, f.Close
	}

	hopts := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		L = slog.New(slog.NewJSONHandler(out, hopts))
	} else {
		L = slog.New(slog.NewTextHandler(out, hopts))
	}
	return closer, nil
}

// ParseLevel maps a flag value to a level. "off" and "" disable logging.
func ParseLevel(s string) (slog.Level, bool, error) {
	switch strings.ToLower(s) {
	case "", "off", "none":
		return 0, false, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, false, fmt.Errorf("invalid log level %q (want debug, info, warn, error or off)", s)
	}
	return lvl, true, nil
}

// cleanOldLogs removes log files older than retentionDays.
func cleanOldLogs(logDir string, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}

		// Parse date from filename: mmdriver-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), logPrefix)
		logDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
