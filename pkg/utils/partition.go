package utils

// Span is a half-open index range [Start, End).
type Span struct {
	Start int
	End   int
}

// Len returns the number of indices covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Partition splits [0, n) into at most parts contiguous spans of nearly equal
// size, in increasing order. It returns nil when n <= 0.
func Partition(n, parts int) []Span {
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}

	spans := make([]Span, 0, parts)
	size, rem := n/parts, n%parts
	start := 0
	for i := 0; i < parts; i++ {
		end := start + size
		if i < rem {
			end++
		}
		spans = append(spans, Span{Start: start, End: end})
		start = end
	}
	return spans
}
