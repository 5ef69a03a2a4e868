package scratch

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(Config{Dir: filepath.Join(t.TempDir(), "scratch")}, testLogger())
}

func TestEnsureDirIdempotent(t *testing.T) {
	store := newTestStore(t)

	first, err := store.EnsureDir()
	if err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}

	second, err := store.EnsureDir()
	if err != nil {
		t.Fatalf("second EnsureDir failed: %v", err)
	}

	if first != second {
		t.Errorf("EnsureDir returned different paths: %s vs %s", first, second)
	}

	info, err := os.Stat(first)
	if err != nil {
		t.Fatalf("scratch dir does not exist: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("scratch path is not a directory: %s", first)
	}
}

func TestUniquePathsAreDistinct(t *testing.T) {
	store := newTestStore(t)

	const n = 10000
	seen := make(map[string]bool, n)

	for i := 0; i < n; i++ {
		path, err := store.UniquePath("user_audio.mp3")
		if err != nil {
			t.Fatalf("UniquePath failed on call %d: %v", i, err)
		}
		if seen[path] {
			t.Fatalf("duplicate path after %d calls: %s", i, path)
		}
		seen[path] = true
	}
}

func TestUniquePathSuffix(t *testing.T) {
	store := newTestStore(t)

	path, err := store.UniquePath("transcoded_user_audio.mp3")
	if err != nil {
		t.Fatalf("UniquePath failed: %v", err)
	}

	if !strings.HasSuffix(path, "transcoded_user_audio.mp3") {
		t.Errorf("path %s missing expected suffix", path)
	}

	if filepath.Dir(path) != store.Dir() {
		t.Errorf("path %s not inside scratch dir %s", path, store.Dir())
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	store := newTestStore(t)

	payload := []byte{0x49, 0x44, 0x33, 0x00, 0xFF, 0xFE, 0x01, 0x02}

	path, err := store.WriteFile(payload, "ai_audio_reply.mp3")
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file failed: %v", err)
	}

	if !bytes.Equal(got, payload) {
		t.Errorf("round trip mismatch: wrote %v, read %v", payload, got)
	}
}

func TestSweepRemovesOnlyOldFiles(t *testing.T) {
	store := newTestStore(t)

	oldPath, err := store.WriteFile([]byte("old"), "user_audio.mp3")
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	// Age the file well past the cutoff
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	newPath, err := store.WriteFile([]byte("new"), "user_audio.mp3")
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	store.sweep(time.Hour)

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Errorf("old file should have been swept: %s", oldPath)
	}
	if _, err := os.Stat(newPath); err != nil {
		t.Errorf("new file should have survived the sweep: %v", err)
	}
}
