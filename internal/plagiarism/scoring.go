package plagiarism

import (
	"sort"
)

// similarity = 2 * matched / (lenA + lenB)
func similarity(matched, lenA, lenB int) float64 {
	total := lenA + lenB
	if total == 0 {
		return 0.0
	}
	return clamp(2.0 * float64(matched) / float64(total))
}

// maximumSimilarity relates the matched tokens to the shorter submission
func maximumSimilarity(matched, lenA, lenB int) float64 {
	shorter := min(lenA, lenB)
	if shorter == 0 {
		return 0.0
	}
	return clamp(float64(matched) / float64(shorter))
}

// minimumSimilarity relates the matched tokens to the longer submission
func minimumSimilarity(matched, lenA, lenB int) float64 {
	longer := max(lenA, lenB)
	if longer == 0 {
		return 0.0
	}
	return clamp(float64(matched) / float64(longer))
}

func clamp(score float64) float64 {
	if score > 1.0 {
		return 1.0
	}
	if score < 0.0 {
		return 0.0
	}
	return score
}

// RunStatistics summarises the comparisons of one run
type RunStatistics struct {
	Comparisons       int
	AverageSimilarity float64
	MaxSimilarity     float64
}

func Statistics(results []ComparisonResult) RunStatistics {
	stats := RunStatistics{Comparisons: len(results)}
	if len(results) == 0 {
		return stats
	}

	sum := 0.0
	for _, r := range results {
		sum += r.Similarity
		if r.Similarity > stats.MaxSimilarity {
			stats.MaxSimilarity = r.Similarity
		}
	}
	stats.AverageSimilarity = sum / float64(len(results))

	return stats
}

// TopComparisons returns up to k results ordered by descending similarity.
// Equal scores keep their run order. The input is not modified.
func TopComparisons(results []ComparisonResult, k int) []ComparisonResult {
	sorted := make([]ComparisonResult, len(results))
	copy(sorted, results)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Similarity > sorted[j].Similarity
	})

	if k >= 0 && k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}
