package editord

import (
	"fmt"
	"sync"
)

// FoldStore holds the folds installed in the emulated buffer.
// All mutation goes through the owning Editor, which serializes calls, but
// the store carries its own lock so read-side inspection (listFolds, tests)
// is safe from any goroutine.
type FoldStore struct {
	mu        sync.Mutex
	lineCount int
	folds     [][2]int
	seen      map[[2]int]struct{}
}

// NewFoldStore creates a store for a buffer with the given number of lines
func NewFoldStore(lineCount int) *FoldStore {
	return &FoldStore{
		lineCount: lineCount,
		seen:      make(map[[2]int]struct{}),
	}
}

// Clear removes every installed fold
func (s *FoldStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folds = nil
	s.seen = make(map[[2]int]struct{})
}

// Create installs a fold over the 1-based inclusive line range [start, end].
// Re-creating an existing fold is a no-op, so a clear-then-recreate cycle is
// idempotent.
func (s *FoldStore) Create(start, end int) error {
	if start < 1 {
		return fmt.Errorf("fold start %d is before line 1", start)
	}
	if start > end {
		return fmt.Errorf("fold start %d is after end %d", start, end)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lineCount > 0 && end > s.lineCount {
		return fmt.Errorf("fold end %d is past last line %d", end, s.lineCount)
	}

	key := [2]int{start, end}
	if _, ok := s.seen[key]; ok {
		return nil
	}
	s.seen[key] = struct{}{}
	s.folds = append(s.folds, key)
	return nil
}

// Folds returns the installed folds as 1-based pairs in creation order
func (s *FoldStore) Folds() [][2]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][2]int, len(s.folds))
	copy(out, s.folds)
	return out
}

// LineCount returns the buffer's line count (0 means unbounded)
func (s *FoldStore) LineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lineCount
}

// SetLineCount resizes the emulated buffer
func (s *FoldStore) SetLineCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lineCount = n
}
