package utils

import "testing"

func TestPartition(t *testing.T) {
	tests := []struct {
		n, parts  int
		wantSpans int
	}{
		{10, 3, 3},
		{10, 1, 1},
		{3, 8, 3},
		{0, 4, 0},
		{7, 0, 1},
	}

	for _, tt := range tests {
		spans := Partition(tt.n, tt.parts)
		if len(spans) != tt.wantSpans {
			t.Errorf("Partition(%d, %d) returned %d spans, expected %d", tt.n, tt.parts, len(spans), tt.wantSpans)
			continue
		}

		// spans must tile [0, n) without gaps or overlaps
		next := 0
		for _, s := range spans {
			if s.Start != next {
				t.Errorf("Partition(%d, %d): span starts at %d, expected %d", tt.n, tt.parts, s.Start, next)
			}
			if s.Len() <= 0 {
				t.Errorf("Partition(%d, %d): empty span %+v", tt.n, tt.parts, s)
			}
			next = s.End
		}
		if tt.n > 0 && next != tt.n {
			t.Errorf("Partition(%d, %d): spans end at %d, expected %d", tt.n, tt.parts, next, tt.n)
		}
	}
}

func TestPartitionBalanced(t *testing.T) {
	spans := Partition(10, 3)
	want := []int{4, 3, 3}
	for i, s := range spans {
		if s.Len() != want[i] {
			t.Errorf("Span %d has length %d, expected %d", i, s.Len(), want[i])
		}
	}
}
