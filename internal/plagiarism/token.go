package plagiarism

import (
	"container/heap"
	"fmt"
	"strings"

	"github.com/RishiKendai/aegis-tiling/internal/models"
)

// Match is a tile: tokens a[StartA:EndA] equal b[StartB:EndB] by type.
type Match struct {
	StartA int `bson:"startA" json:"startA"`
	EndA   int `bson:"endA" json:"endA"`
	StartB int `bson:"startB" json:"startB"`
	EndB   int `bson:"endB" json:"endB"`
	Length int `bson:"length" json:"length"`
}

func (m Match) transpose() Match {
	return Match{
		StartA: m.StartB,
		EndA:   m.EndB,
		StartB: m.StartA,
		EndB:   m.EndA,
		Length: m.Length,
	}
}

// Tiling is the outcome of comparing two sequences.
type Tiling struct {
	Matches       []Match
	MatchedTokens int
	LenA          int
	LenB          int
	Similarity    float64
}

// CompareTokens tiles two raw token slices without masks.
func CompareTokens(tokensA, tokensB []models.Token, minMatch int) (Tiling, error) {
	return Compare(NewSequence("a", tokensA), NewSequence("b", tokensB), minMatch, nil, nil)
}

// Compare runs Greedy String Tiling on a and b. Runs shorter than minMatch
// are ignored, and tokens covered by maskA/maskB can neither start nor
// extend a match while still counting towards the similarity denominator.
//
// Masks need not be sorted; they are normalized with NewMask.
//
// The two inputs are put in a canonical order first (shorter sequence first,
// then by token types, then by masks), so Compare(b, a) yields the transposed
// matches of Compare(a, b). Equal-length candidates are taken by lowest start
// in the canonically first input, then lowest start in the other. When a is
// longer than b, ties are therefore broken on b's positions.
func Compare(a, b *Sequence, minMatch int, maskA, maskB Mask) (Tiling, error) {
	if a == nil || b == nil {
		return Tiling{}, fmt.Errorf("%w: nil sequence", ErrInvalidInput)
	}
	if minMatch < 1 {
		return Tiling{}, fmt.Errorf("%w: minimum match length %d must be at least 1", ErrInvalidInput, minMatch)
	}
	if err := maskA.validate(a.Len()); err != nil {
		return Tiling{}, fmt.Errorf("sequence %q: %w", a.ID, err)
	}
	if err := maskB.validate(b.Len()); err != nil {
		return Tiling{}, fmt.Errorf("sequence %q: %w", b.ID, err)
	}
	maskA, maskB = NewMask(maskA...), NewMask(maskB...)

	swapped := canonicalOrder(a, b, maskA, maskB) > 0
	if swapped {
		a, b = b, a
		maskA, maskB = maskB, maskA
	}

	matches := tile(a, b, minMatch, maskA.occupancy(a.Len()), maskB.occupancy(b.Len()))
	if len(maskA) > 0 || len(maskB) > 0 {
		matches = boundByUnmasked(a, b, minMatch, maskA, maskB, matches)
	}

	result := Tiling{
		Matches: matches,
		LenA:    a.Len(),
		LenB:    b.Len(),
	}
	if swapped {
		for i := range result.Matches {
			result.Matches[i] = result.Matches[i].transpose()
		}
		result.LenA, result.LenB = result.LenB, result.LenA
	}
	result.MatchedTokens = coveredTokens(result.Matches)
	result.Similarity = similarity(result.MatchedTokens, result.LenA, result.LenB)

	return result, nil
}

// tile is the greedy loop. markedA/markedB start as the masks and are
// consumed in place. Every maximal run is collected once and popped longest
// first, lowest start in a, then lowest start in b. A popped run that
// crosses a tile taken earlier is split into its unmarked pieces, which go
// back on the heap. This takes the same tiles as one tile at a time.
func tile(a, b *Sequence, minMatch int, markedA, markedB []bool) []Match {
	n, m := a.Len(), b.Len()
	if n < minMatch || m < minMatch {
		return nil
	}

	windowsA := a.windowHashes(minMatch)
	index := buildWindowIndex(b.windowHashes(minMatch), markedB, minMatch)
	nextA := nextMarked(markedA, nil)

	var runs runHeap
	for i := 0; i+minMatch <= n; i++ {
		if blocked := nextA[i]; blocked < i+minMatch {
			i = blocked // resumes after the marked token
			continue
		}
		for _, j := range index[windowsA[i]] {
			// a run that can be extended to the left is never maximal
			if i > 0 && j > 0 && !markedA[i-1] && !markedB[j-1] &&
				a.hashes[i-1] == b.hashes[j-1] && a.tokens[i-1].Type == b.tokens[j-1].Type {
				continue
			}
			if k := runLength(a.tokens, b.tokens, markedA, markedB, i, j); k >= minMatch {
				runs = append(runs, run{i: int32(i), j: int32(j), k: int32(k)})
			}
		}
	}
	heap.Init(&runs)

	var matches []Match
	for runs.Len() > 0 {
		r := heap.Pop(&runs).(run)
		i, j, k := int(r.i), int(r.j), int(r.k)

		if !anyMarked(markedA, i, i+k) && !anyMarked(markedB, j, j+k) {
			for t := 0; t < k; t++ {
				markedA[i+t] = true
				markedB[j+t] = true
			}
			matches = append(matches, Match{StartA: i, EndA: i + k, StartB: j, EndB: j + k, Length: k})
			continue
		}

		start := -1
		for t := 0; t <= k; t++ {
			if t < k && !markedA[i+t] && !markedB[j+t] {
				if start < 0 {
					start = t
				}
				continue
			}
			if start >= 0 && t-start >= minMatch {
				heap.Push(&runs, run{i: int32(i + start), j: int32(j + start), k: int32(t - start)})
			}
			start = -1
		}
	}
	return matches
}

// run is a maximal diagonal run a[i:i+k] == b[j:j+k].
type run struct {
	i, j, k int32
}

// runHeap orders runs longest first, then by start in a, then in b.
type runHeap []run

func (h runHeap) Len() int { return len(h) }

func (h runHeap) Less(x, y int) bool {
	if h[x].k != h[y].k {
		return h[x].k > h[y].k
	}
	if h[x].i != h[y].i {
		return h[x].i < h[y].i
	}
	return h[x].j < h[y].j
}

func (h runHeap) Swap(x, y int) { h[x], h[y] = h[y], h[x] }

func (h *runHeap) Push(v any) { *h = append(*h, v.(run)) }

func (h *runHeap) Pop() any {
	old := *h
	last := old[len(old)-1]
	*h = old[:len(old)-1]
	return last
}

// boundByUnmasked keeps masks from raising the score. Greedy tiling is not
// monotone, so a masked tiling can cover more tokens than the unmasked one.
// In that case the unmasked tiles clipped to the masks are used instead.
func boundByUnmasked(a, b *Sequence, minMatch int, maskA, maskB Mask, masked []Match) []Match {
	plain := tile(a, b, minMatch, make([]bool, a.Len()), make([]bool, b.Len()))
	if coveredTokens(masked) <= coveredTokens(plain) {
		return masked
	}
	return clipMatches(plain, maskA, maskB, minMatch)
}

// clipMatches cuts every match at masked tokens of either side and keeps the
// pieces of at least minMatch tokens.
func clipMatches(matches []Match, maskA, maskB Mask, minMatch int) []Match {
	var out []Match
	for _, m := range matches {
		start := -1
		for k := 0; k <= m.Length; k++ {
			if k < m.Length && !maskA.Covers(m.StartA+k) && !maskB.Covers(m.StartB+k) {
				if start < 0 {
					start = k
				}
				continue
			}
			if start >= 0 && k-start >= minMatch {
				out = append(out, Match{
					StartA: m.StartA + start,
					EndA:   m.StartA + k,
					StartB: m.StartB + start,
					EndB:   m.StartB + k,
					Length: k - start,
				})
			}
			start = -1
		}
	}
	return out
}

func coveredTokens(matches []Match) int {
	total := 0
	for _, m := range matches {
		total += m.Length
	}
	return total
}

// runLength counts equal, unmarked token pairs starting at (i, j).
func runLength(a, b []models.Token, markedA, markedB []bool, i, j int) int {
	k := 0
	for i+k < len(a) && j+k < len(b) {
		if markedA[i+k] || markedB[j+k] || a[i+k].Type != b[j+k].Type {
			break
		}
		k++
	}
	return k
}

func anyMarked(marked []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if marked[i] {
			return true
		}
	}
	return false
}

// canonicalOrder is a total order on (sequence, mask) inputs: length, then
// token types, then masks.
func canonicalOrder(a, b *Sequence, maskA, maskB Mask) int {
	if c := cmpInt(a.Len(), b.Len()); c != 0 {
		return c
	}
	for i := range a.tokens {
		if c := strings.Compare(a.tokens[i].Type, b.tokens[i].Type); c != 0 {
			return c
		}
	}
	return compareMasks(maskA, maskB)
}
