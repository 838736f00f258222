package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dskvich/whisper-telegram-bot/pkg/logger"
)

const (
	filePrefix = "audio-"
	dirPerm    = 0o755
)

type TempDir struct {
	path string
}

// NewTempDir makes sure the directory exists and is writable by us.
func NewTempDir(path string) (*TempDir, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "telegram_whisper_bot")
	}
	if err := os.MkdirAll(path, dirPerm); err != nil {
		return nil, fmt.Errorf("creating temp dir %s: %w", path, err)
	}
	return &TempDir{path: path}, nil
}

func (t *TempDir) Path() string { return t.path }

// NewFilePath returns a fresh, collision-free path inside the directory. The
// file itself is not created.
func (t *TempDir) NewFilePath(ext string) string {
	return filepath.Join(t.path, filePrefix+uuid.NewString()+ext)
}

// Remove deletes the given files. Empty and already-missing paths are skipped.
func (t *TempDir) Remove(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("removing temp file", "path", p, logger.Err(err))
		}
	}
}

// Sweep removes leftover audio files older than maxAge and reports how many went.
func (t *TempDir) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(t.path)
	if err != nil {
		return 0, fmt.Errorf("reading temp dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), filePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(t.path, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("sweeping temp file", "name", entry.Name(), logger.Err(err))
			continue
		}
		removed++
	}

	return removed, nil
}
