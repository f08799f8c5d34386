package fold

import "testing"

func TestRange_Command(t *testing.T) {
	tests := []struct {
		start, end int
		want       string
	}{
		{0, 4, "1,5fo"},
		{10, 12, "11,13fo"},
		{0, 0, "1,1fo"},
		{99, 199, "100,200fo"},
	}

	for _, tt := range tests {
		r := Range{Start: tt.start, End: tt.end}
		if got := r.Command(); got != tt.want {
			t.Errorf("Range{%d,%d}.Command() = %q, want %q", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestRange_Validate(t *testing.T) {
	if err := (Range{Start: 3, End: 3}).Validate(); err != nil {
		t.Errorf("single-line range: %v", err)
	}
	if err := (Range{Start: 5, End: 2}).Validate(); err == nil {
		t.Error("inverted range should fail validation")
	}
	if err := (Range{Start: -1, End: 2}).Validate(); err == nil {
		t.Error("negative start should fail validation")
	}
}

func TestNewRange(t *testing.T) {
	r, err := NewRange(0, 4)
	if err != nil {
		t.Fatalf("NewRange(0, 4): %v", err)
	}
	if r != (Range{Start: 0, End: 4}) {
		t.Errorf("NewRange(0, 4) = %v", r)
	}
	if _, err := NewRange(5, 2); err == nil {
		t.Error("inverted bounds should fail")
	}
	if _, err := NewRange(-1, 2); err == nil {
		t.Error("negative start should fail")
	}
}

func TestRange_External(t *testing.T) {
	r := Range{Start: 0, End: 4}
	if got := r.External(); got != [2]int{1, 5} {
		t.Errorf("External() = %v, want [1 5]", got)
	}
}

func TestSet_AddDeduplicates(t *testing.T) {
	s := NewSet()
	if !s.Add(Range{Start: 0, End: 4}) {
		t.Error("first Add should return true")
	}
	if s.Add(Range{Start: 0, End: 4}) {
		t.Error("duplicate Add should return false")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestSet_PairsOrder(t *testing.T) {
	s := NewSet(Range{Start: 10, End: 12}, Range{Start: 0, End: 4})
	pairs := s.Pairs()
	if len(pairs) != 2 {
		t.Fatalf("Pairs() len = %d, want 2", len(pairs))
	}
	if pairs[0] != [2]int{11, 13} || pairs[1] != [2]int{1, 5} {
		t.Errorf("Pairs() = %v, want [[11 13] [1 5]]", pairs)
	}
}

func TestSet_Signature(t *testing.T) {
	a := NewSet(Range{Start: 0, End: 4}, Range{Start: 10, End: 12})
	b := NewSet(Range{Start: 0, End: 4}, Range{Start: 10, End: 12})
	if a.Signature() != b.Signature() {
		t.Error("equal sets should have equal signatures")
	}

	c := NewSet(Range{Start: 0, End: 4})
	if a.Signature() == c.Signature() {
		t.Error("different sets should have different signatures")
	}

	if NewSet().Signature() != "" {
		t.Error("empty set should have empty signature")
	}
}

func TestSet_Validate(t *testing.T) {
	s := NewSet(Range{Start: 0, End: 4}, Range{Start: 9, End: 3})
	if err := s.Validate(); err == nil {
		t.Error("set containing an inverted range should fail validation")
	}
}
