package scratch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DefaultDirName is the fixed subfolder created under the platform temp
// directory. All scratch files for this service live beneath it.
const DefaultDirName = "oz_voice_assistant"

// Store allocates uniquely-named files in a dedicated scratch directory.
// It never reads files back and never deletes them on behalf of callers;
// retention is handled separately by the optional sweeper.
type Store struct {
	dir    string
	logger *slog.Logger
}

// Config contains scratch store configuration
type Config struct {
	Dir           string        // scratch directory; defaults to <tmp>/oz_voice_assistant
	MaxAge        time.Duration // files older than this are swept; 0 disables sweeping
	SweepInterval time.Duration // how often the sweeper runs
}

// NewStore creates a scratch store rooted at cfg.Dir.
func NewStore(cfg Config, logger *slog.Logger) *Store {
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), DefaultDirName)
	}
	return &Store{
		dir:    dir,
		logger: logger,
	}
}

// Dir returns the scratch directory path without creating it.
func (s *Store) Dir() string {
	return s.dir
}

// EnsureDir creates the scratch directory if it does not exist and returns
// its path. Safe to call repeatedly.
func (s *Store) EnsureDir() (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	return s.dir, nil
}

// UniquePath returns a new path inside the scratch directory built from a
// random UUID plus the given suffix. The randomness makes collisions
// negligible, so no existence check is performed.
func (s *Store) UniquePath(suffix string) (string, error) {
	dir, err := s.EnsureDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, uuid.NewString()+suffix), nil
}

// WriteFile persists data to a freshly allocated unique path and returns
// that path. Filesystem errors propagate untranslated.
func (s *Store) WriteFile(data []byte, suffix string) (string, error) {
	path, err := s.UniquePath(suffix)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// RunSweeper periodically deletes scratch files older than cfg.MaxAge.
// It returns immediately when MaxAge is zero (retention disabled) and
// otherwise blocks until ctx is cancelled. Intended to run in its own
// goroutine from main.
func (s *Store) RunSweeper(ctx context.Context, cfg Config) {
	if cfg.MaxAge <= 0 {
		return
	}
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(cfg.MaxAge)
		}
	}
}

// sweep removes files in the scratch directory whose modification time is
// older than maxAge. Errors are logged and skipped; a failed removal never
// affects in-flight requests.
func (s *Store) sweep(maxAge time.Duration) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Scratch sweep failed to read directory",
				slog.String("dir", s.dir),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("Scratch sweep failed to remove file",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Debug("Scratch sweep completed",
			slog.Int("removed", removed),
			slog.Duration("max_age", maxAge),
		)
	}
}
