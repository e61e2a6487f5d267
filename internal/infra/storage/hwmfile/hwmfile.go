// Package hwmfile persists the block ingestor's high-water mark as a
// single ASCII integer in a plain file, per the external interface's
// literal "single integer as ASCII" contract. The file holds the
// authoritative copy; MirroredCheckpoint also mirrors it into the embedded
// local database.
package hwmfile

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/blocksentry/watchtower/internal/pkg/errkind"
)

// Store implements blockingest.Checkpoint against a single file path.
type Store struct {
	mu   sync.Mutex
	path string
}

// New builds a Store writing to path. The file need not exist yet.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted height. A missing file is reported as
// (0, false, nil) — a fresh start, not an error.
func (s *Store) Load(ctx context.Context) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, &errkind.PersistenceError{Target: s.path, Err: err}
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return 0, false, nil
	}

	height, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, false, &errkind.PersistenceError{Target: s.path, Err: fmt.Errorf("corrupt high-water mark %q: %w", trimmed, err)}
	}
	return height, true, nil
}

// Save writes height as ASCII, replacing the file's contents atomically
// via a rename so a crash mid-write never corrupts the last good value.
func (s *Store) Save(ctx context.Context, height uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatUint(height, 10)), 0o644); err != nil {
		return &errkind.PersistenceError{Target: s.path, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &errkind.PersistenceError{Target: s.path, Err: err}
	}
	return nil
}
