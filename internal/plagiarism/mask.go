package plagiarism

import (
	"fmt"
	"sort"
)

// Interval is a half-open token index range [Start, End).
type Interval struct {
	Start int `bson:"start" json:"start"`
	End   int `bson:"end" json:"end"`
}

// Mask is a set of intervals whose tokens may not take part in a match. A
// nil Mask masks nothing. NewMask returns the normalized form, sorted and
// disjoint, which Covers requires.
type Mask []Interval

// NewMask sorts the intervals and merges the ones that touch or overlap.
// Empty intervals are dropped.
func NewMask(intervals ...Interval) Mask {
	in := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.End > iv.Start {
			in = append(in, iv)
		}
	}
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool {
		if in[i].Start != in[j].Start {
			return in[i].Start < in[j].Start
		}
		return in[i].End < in[j].End
	})

	merged := Mask{in[0]}
	for _, iv := range in[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Covers reports whether token index i is masked. m must be normalized.
func (m Mask) Covers(i int) bool {
	k := sort.Search(len(m), func(k int) bool { return m[k].End > i })
	return k < len(m) && m[k].Start <= i
}

// Len returns the number of masked tokens.
func (m Mask) Len() int {
	total := 0
	for _, iv := range m {
		total += iv.End - iv.Start
	}
	return total
}

func (m Mask) validate(n int) error {
	for _, iv := range m {
		if iv.Start < 0 || iv.End > n || iv.Start > iv.End {
			return fmt.Errorf("%w: mask interval [%d, %d) outside sequence of %d tokens", ErrInvalidInput, iv.Start, iv.End, n)
		}
	}
	return nil
}

// occupancy expands the mask into a fresh per-token marker slice.
func (m Mask) occupancy(n int) []bool {
	marked := make([]bool, n)
	for _, iv := range m {
		for i := iv.Start; i < iv.End; i++ {
			marked[i] = true
		}
	}
	return marked
}

func compareMasks(a, b Mask) int {
	if len(a) != len(b) {
		return cmpInt(len(a), len(b))
	}
	for i := range a {
		if c := cmpInt(a[i].Start, b[i].Start); c != 0 {
			return c
		}
		if c := cmpInt(a[i].End, b[i].End); c != 0 {
			return c
		}
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
