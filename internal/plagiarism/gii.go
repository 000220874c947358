package plagiarism

// windowIndex maps a window hash to the ascending start positions of the
// windows carrying it.
type windowIndex map[uint64][]int

// buildWindowIndex indexes the windows of size tokens that contain no marked
// token at build time.
func buildWindowIndex(windows []uint64, marked []bool, size int) windowIndex {
	index := make(windowIndex, len(windows))
	next := nextMarked(marked, nil)

	for start, hash := range windows {
		if next[start] < start+size {
			continue
		}
		index[hash] = append(index[hash], start)
	}
	return index
}

// nextMarked fills dst so that dst[i] is the lowest marked index >= i, or
// len(marked) when there is none. dst is reallocated when too small.
func nextMarked(marked []bool, dst []int) []int {
	n := len(marked)
	if cap(dst) < n+1 {
		dst = make([]int, n+1)
	}
	dst = dst[:n+1]
	dst[n] = n
	for i := n - 1; i >= 0; i-- {
		if marked[i] {
			dst[i] = i
		} else {
			dst[i] = dst[i+1]
		}
	}
	return dst
}
