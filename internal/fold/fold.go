package fold

import (
	"fmt"
	"strings"
)

// ClearCommand removes every fold in the remote buffer. Sent before each
// install cycle so a dispatch always recreates state from scratch.
const ClearCommand = "normal! zE"

// Range describes a contiguous block of buffer lines to fold.
// Bounds are zero-based and inclusive. Immutable once created.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewRange creates a Range and validates its bounds
func NewRange(start, end int) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// Validate checks the range invariants
func (r Range) Validate() error {
	if r.Start < 0 {
		return fmt.Errorf("fold range start %d is negative", r.Start)
	}
	if r.Start > r.End {
		return fmt.Errorf("fold range start %d is after end %d", r.Start, r.End)
	}
	return nil
}

// Command renders the fold-creation directive for the editor's command
// interpreter. The editor's command surface is 1-based, so both bounds are
// shifted by +1. The "<start>,<end>fo" shape is a wire contract and must not
// change.
func (r Range) Command() string {
	return fmt.Sprintf("%d,%dfo", r.Start+1, r.End+1)
}

// External returns the 1-based [start, end] pair sent to delegated
// install procedures
func (r Range) External() [2]int {
	return [2]int{r.Start + 1, r.End + 1}
}

// String returns the range in its internal zero-based form
func (r Range) String() string {
	return fmt.Sprintf("(%d,%d)", r.Start, r.End)
}

// Set is an ordered collection of unique fold ranges for one buffer.
// Iteration order is insertion order; the installed result does not depend
// on it because fold-creation commands commute.
type Set struct {
	ranges []Range
	seen   map[Range]struct{}
}

// NewSet creates a Set containing the given ranges, dropping duplicates
func NewSet(ranges ...Range) *Set {
	s := &Set{seen: make(map[Range]struct{}, len(ranges))}
	for _, r := range ranges {
		s.Add(r)
	}
	return s
}

// Add appends a range unless an equal range is already present.
// Returns true if the range was added.
func (s *Set) Add(r Range) bool {
	if s.seen == nil {
		s.seen = make(map[Range]struct{})
	}
	if _, ok := s.seen[r]; ok {
		return false
	}
	s.seen[r] = struct{}{}
	s.ranges = append(s.ranges, r)
	return true
}

// Len returns the number of ranges in the set
func (s *Set) Len() int {
	return len(s.ranges)
}

// Ranges returns the ranges in insertion order.
// The returned slice is shared; callers must not modify it.
func (s *Set) Ranges() []Range {
	return s.ranges
}

// Pairs returns the 1-based [start, end] pairs in insertion order, the
// argument shape consumed by delegated install procedures
func (s *Set) Pairs() [][2]int {
	pairs := make([][2]int, len(s.ranges))
	for i, r := range s.ranges {
		pairs[i] = r.External()
	}
	return pairs
}

// Validate checks every range in the set, reporting the first invalid one
func (s *Set) Validate() error {
	for _, r := range s.ranges {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Signature returns a stable fingerprint of the set's contents, used to
// skip re-dispatch of an unchanged set. Two sets with the same ranges in
// the same order have the same signature.
func (s *Set) Signature() string {
	if len(s.ranges) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range s.ranges {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%d,%d", r.Start, r.End)
	}
	return b.String()
}
