package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// scratchPrefix marks files created by Scratch so SweepScratch never touches anything else.
const scratchPrefix = "docqa-scratch-"

// Scratch creates short-lived files for extractors that can only read from a path.
type Scratch struct {
	Dir string // empty means os.TempDir()
}

// Write copies raw into a new scratch file and returns its path and a cleanup func.
// The cleanup must be called on every exit path; it is safe to call more than once.
func (s Scratch) Write(filename string, raw []byte) (string, func(), error) {
	dir := s.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	pattern := scratchPrefix + "*" + strings.ToLower(filepath.Ext(filename))
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", func() {}, fmt.Errorf("create scratch file: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := f.Write(raw); err != nil {
		f.Close()
		cleanup()
		return "", func() {}, fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("close scratch file: %w", err)
	}
	return path, cleanup, nil
}

// SweepScratch removes scratch files older than maxAge left behind by a crashed process.
// It returns the number of files removed.
func SweepScratch(dir string, maxAge time.Duration) (int, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), scratchPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(dir, e.Name())) == nil {
			removed++
		}
	}
	return removed, nil
}
