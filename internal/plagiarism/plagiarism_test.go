package plagiarism

import (
	"context"
	"testing"

	"github.com/RishiKendai/aegis-tiling/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSet(t *testing.T, source *fakeSource, basecode *Submission, pool *WorkerPool, ids ...string) *SubmissionSet {
	t.Helper()
	set, err := NewSubmissionSet(context.Background(), submissions(ids...), basecode, source, &recordingCollector{}, pool, Options{MinimumTokenMatch: 3})
	require.NoError(t, err)
	return set
}

func TestRun_EveryUnorderedPairOnce(t *testing.T) {
	source := newFakeSource().
		with("s1", "A", "B", "C", "D").
		with("s2", "A", "B", "C", "X").
		with("s3", "X", "B", "C", "D").
		failing("s4", assert.AnError)
	set := buildSet(t, source, nil, nil, "s1", "s2", "s3", "s4")

	results, err := Run(context.Background(), set, 3, nil)
	require.NoError(t, err)

	require.Len(t, results, 3)
	pairs := make([][2]string, len(results))
	for i, r := range results {
		pairs[i] = [2]string{r.SubmissionA, r.SubmissionB}
		assert.NotEqual(t, r.SubmissionA, r.SubmissionB)
	}
	assert.Equal(t, [][2]string{{"s1", "s2"}, {"s1", "s3"}, {"s2", "s3"}}, pairs)

	assert.InDelta(t, 0.75, results[0].Similarity, 1e-9)
	assert.InDelta(t, 0.75, results[1].Similarity, 1e-9)
	assert.Equal(t, 0.0, results[2].Similarity)
}

func TestRun_MatchesSequentialWithPool(t *testing.T) {
	source := newFakeSource()
	names := []string{"s1", "s2", "s3", "s4", "s5", "s6"}
	bodies := [][]string{
		{"A", "B", "C", "D", "E", "F"},
		{"B", "C", "D", "A", "B", "C"},
		{"F", "E", "D", "C", "B", "A"},
		{"A", "B", "C", "A", "B", "C"},
		{"C", "D", "E", "F", "A", "B"},
		{"D", "E", "F", "A", "B", "C"},
	}
	for i, name := range names {
		source.with(name, bodies[i]...)
	}

	sequential, err := Run(context.Background(), buildSet(t, source, nil, nil, names...), 3, nil)
	require.NoError(t, err)

	pool := NewWorkerPool(context.Background(), 4)
	defer pool.Close()
	parallel, err := Run(context.Background(), buildSet(t, source, nil, pool, names...), 3, pool)
	require.NoError(t, err)

	assert.Len(t, sequential, len(names)*(len(names)-1)/2)
	assert.Equal(t, sequential, parallel)
}

func TestRunDetailed_BasecodeNeutralization(t *testing.T) {
	body := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	source := newFakeSource().
		with("base", "A", "B", "C", "D").
		with("s1", body...).
		with("s2", body...)

	plain, err := Run(context.Background(), buildSet(t, source, nil, nil, "s1", "s2"), 3, nil)
	require.NoError(t, err)
	require.Len(t, plain, 1)
	assert.Equal(t, 1.0, plain[0].Similarity)

	base := NewSubmission("base", "java", "")
	out, err := RunDetailed(context.Background(), buildSet(t, source, base, nil, "s1", "s2"), 3, nil)
	require.NoError(t, err)

	require.Len(t, out.Basecode, 2)
	assert.Equal(t, "base", out.Basecode[0].SubmissionA)
	assert.Equal(t, "s2", out.Basecode[1].SubmissionB)
	assert.Equal(t, Mask{{Start: 0, End: 4}}, out.Masks["s1"])
	assert.Equal(t, Mask{{Start: 0, End: 4}}, out.Masks["s2"])

	require.Len(t, out.Comparisons, 1)
	masked := out.Comparisons[0]
	assert.Equal(t, []Match{{StartA: 4, EndA: 8, StartB: 4, EndB: 8, Length: 4}}, masked.Matches)
	assert.InDelta(t, 0.5, masked.Similarity, 1e-9)
	assert.InDelta(t, 0.5, masked.MaximumSimilarity, 1e-9)
	assert.LessOrEqual(t, masked.Similarity, plain[0].Similarity)
}

func TestRun_SingleSubmission(t *testing.T) {
	source := newFakeSource().with("s1", "A", "B", "C")
	results, err := Run(context.Background(), buildSet(t, source, nil, nil, "s1"), 3, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRun_InvalidInput(t *testing.T) {
	_, err := Run(context.Background(), nil, 3, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	source := newFakeSource().with("s1", "A", "B", "C")
	_, err = Run(context.Background(), buildSet(t, source, nil, nil, "s1"), 0, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRun_Cancelled(t *testing.T) {
	source := newFakeSource().
		with("s1", "A", "B", "C").
		with("s2", "A", "B", "C")
	set := buildSet(t, source, nil, nil, "s1", "s2")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, set, 3, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComparisonJob_Execute(t *testing.T) {
	var result ComparisonResult
	job := &ComparisonJob{
		A:        NewSequence("x", toks("A", "B", "C", "D")),
		B:        NewSequence("y", []models.Token{{Type: "A"}, {Type: "B"}, {Type: "C"}}),
		MinMatch: 2,
		Kind:     "pair",
		Result:   &result,
	}

	require.NoError(t, job.Execute(context.Background()))
	assert.Equal(t, "x", result.SubmissionA)
	assert.Equal(t, 3, result.MatchedTokens)
	assert.InDelta(t, 6.0/7.0, result.Similarity, 1e-9)
	assert.Equal(t, 1.0, result.MaximumSimilarity)
	assert.InDelta(t, 0.75, result.MinimumSimilarity, 1e-9)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "comparison_run_status:run-1", StatusKey("run-1"))
	assert.Error(t, UpdateStatus(context.Background(), nil, "run-1", models.Step("bogus")))
}
