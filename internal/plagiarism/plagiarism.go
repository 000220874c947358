package plagiarism

import (
	"context"
	"fmt"
	"time"

	"github.com/RishiKendai/aegis-tiling/internal/metrics"
	"github.com/rs/zerolog/log"
)

// ComparisonResult is the tiling of one unordered pair of submissions
type ComparisonResult struct {
	SubmissionA       string
	SubmissionB       string
	Matches           []Match
	MatchedTokens     int
	Similarity        float64
	MaximumSimilarity float64
	MinimumSimilarity float64
}

// RunOutput is everything a comparison run produces
type RunOutput struct {
	// Comparisons holds one result per unordered pair of valid submissions,
	// ordered by the submissions' positions in the valid list.
	Comparisons []ComparisonResult
	// Basecode holds basecode (A) against submission (B) results, in valid order.
	Basecode []ComparisonResult
	// Masks holds the basecode-neutralized ranges per submission id.
	Masks map[string]Mask
}

// ComparisonJob tiles one pair and stores the result in its slot
type ComparisonJob struct {
	A, B         *Sequence
	MaskA, MaskB Mask
	MinMatch     int
	Kind         string
	Result       *ComparisonResult
}

// Execute executes the comparison job
func (j *ComparisonJob) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	tiling, err := Compare(j.A, j.B, j.MinMatch, j.MaskA, j.MaskB)
	if err != nil {
		return fmt.Errorf("failed to compare %q and %q: %w", j.A.ID, j.B.ID, err)
	}
	metrics.ComparisonDuration.Observe(time.Since(start).Seconds())
	metrics.ComparisonCount.WithLabelValues(j.Kind).Inc()

	*j.Result = newComparisonResult(j.A.ID, j.B.ID, tiling)
	return nil
}

func newComparisonResult(idA, idB string, tiling Tiling) ComparisonResult {
	return ComparisonResult{
		SubmissionA:       idA,
		SubmissionB:       idB,
		Matches:           tiling.Matches,
		MatchedTokens:     tiling.MatchedTokens,
		Similarity:        tiling.Similarity,
		MaximumSimilarity: maximumSimilarity(tiling.MatchedTokens, tiling.LenA, tiling.LenB),
		MinimumSimilarity: minimumSimilarity(tiling.MatchedTokens, tiling.LenA, tiling.LenB),
	}
}

// Run compares every unordered pair of valid submissions of set and returns
// the results in pair order.
func Run(ctx context.Context, set *SubmissionSet, minMatch int, pool *WorkerPool) ([]ComparisonResult, error) {
	out, err := RunDetailed(ctx, set, minMatch, pool)
	if err != nil {
		return nil, err
	}
	return out.Comparisons, nil
}

// RunDetailed is Run that also returns the basecode comparisons and masks.
// Basecode neutralization for every submission completes before the first
// pair is scheduled.
func RunDetailed(ctx context.Context, set *SubmissionSet, minMatch int, pool *WorkerPool) (*RunOutput, error) {
	if set == nil {
		return nil, fmt.Errorf("%w: nil submission set", ErrInvalidInput)
	}
	if minMatch < 1 {
		return nil, fmt.Errorf("%w: minimum match length %d must be at least 1", ErrInvalidInput, minMatch)
	}

	start := time.Now()
	valid := set.ValidSubmissions()
	sequences := make([]*Sequence, len(valid))
	for i, s := range valid {
		sequences[i] = NewSequence(s.ID, s.Tokens())
	}

	out := &RunOutput{
		Masks: make(map[string]Mask, len(valid)),
	}
	masks := make([]Mask, len(valid))

	if set.HasBasecode() {
		basecode := set.Basecode()
		baseSeq := NewSequence(basecode.ID, basecode.Tokens())
		out.Basecode = make([]ComparisonResult, len(valid))

		jobs := make([]Job, len(valid))
		for i := range valid {
			jobs[i] = &ComparisonJob{
				A:        baseSeq,
				B:        sequences[i],
				MinMatch: minMatch,
				Kind:     "basecode",
				Result:   &out.Basecode[i],
			}
		}
		if err := dispatch(ctx, pool, jobs); err != nil {
			return nil, fmt.Errorf("failed to compare against basecode: %w", err)
		}

		for i, r := range out.Basecode {
			intervals := make([]Interval, len(r.Matches))
			for k, m := range r.Matches {
				intervals[k] = Interval{Start: m.StartB, End: m.EndB}
			}
			masks[i] = NewMask(intervals...)
			out.Masks[valid[i].ID] = masks[i]
		}

		log.Debug().
			Str("basecode", basecode.ID).
			Int("submissions", len(valid)).
			Msg("Basecode neutralization completed")
	}

	pairs := len(valid) * (len(valid) - 1) / 2
	out.Comparisons = make([]ComparisonResult, pairs)
	jobs := make([]Job, 0, pairs)
	for i := 0; i < len(valid); i++ {
		for j := i + 1; j < len(valid); j++ {
			jobs = append(jobs, &ComparisonJob{
				A:        sequences[i],
				B:        sequences[j],
				MaskA:    masks[i],
				MaskB:    masks[j],
				MinMatch: minMatch,
				Kind:     "pair",
				Result:   &out.Comparisons[len(jobs)],
			})
		}
	}
	if err := dispatch(ctx, pool, jobs); err != nil {
		return nil, fmt.Errorf("failed to compare submissions: %w", err)
	}

	log.Info().
		Int("submissions", len(valid)).
		Int("comparisons", pairs).
		Bool("basecode", set.HasBasecode()).
		Dur("duration", time.Since(start)).
		Msg("Comparison run completed")

	return out, nil
}
