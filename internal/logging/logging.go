// Package logging configures the hook log: structured JSON records
// appended to a size-capped file under the state directory. The hook must
// never fail its caller, so setup degrades to a discard logger rather than
// returning an error.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// MaxLogBytes caps the hook log before rotation.
	MaxLogBytes = 10 * 1024 * 1024
	// BackupCount is how many rotated logs are kept.
	BackupCount = 3
)

// Setup opens the hook log and returns a JSON slog logger writing to it.
// With debug set, records are also mirrored to stderr at debug level.
func Setup(logPath string, debug bool) *slog.Logger {
	_ = RotateIfNeeded(logPath, MaxLogBytes, BackupCount)

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var w io.Writer
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err == nil {
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			w = f
		}
	}
	if w == nil {
		w = io.Discard
	}
	if debug {
		w = io.MultiWriter(w, os.Stderr)
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// RotateIfNeeded rotates path to path.1 (shifting older backups up to
// backups) once it exceeds maxBytes. Rotation failures are not fatal to
// logging.
func RotateIfNeeded(path string, maxBytes int64, backups int) error {
	info, err := os.Stat(path)
	if err != nil || info.Size() <= maxBytes {
		return nil
	}
	for i := backups - 1; i >= 1; i-- {
		old := fmt.Sprintf("%s.%d", path, i)
		if _, err := os.Stat(old); err == nil {
			_ = os.Rename(old, fmt.Sprintf("%s.%d", path, i+1))
		}
	}
	if err := os.Rename(path, path+".1"); err != nil {
		return fmt.Errorf("rotate log: %w", err)
	}
	return nil
}
