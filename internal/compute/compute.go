package compute

import (
	"context"
	"fmt"
	"time"

	"github.com/RishiKendai/aegis-tiling/internal/metrics"
	"github.com/RishiKendai/aegis-tiling/internal/models"
	"github.com/RishiKendai/aegis-tiling/internal/plagiarism"
	"github.com/RishiKendai/aegis-tiling/internal/preprocess"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// topLogged is the number of most similar pairs logged after a run
const topLogged = 5

// failureTimeout bounds storing the failed status and report of a run
const failureTimeout = 10 * time.Second

// SubmissionStore loads the tokenized submissions of a run
type SubmissionStore interface {
	GetArtifactsByRunID(ctx context.Context, runID string) ([]*models.Artifact, error)
	CountArtifactsByRunID(ctx context.Context, runID string) (int64, error)
}

// ResultStore persists comparisons and run reports
type ResultStore interface {
	ReplaceComparisons(ctx context.Context, runID string, comparisons []*models.ComparisonDoc) error
	GetComparisonsByRunID(ctx context.Context, runID string, limit int64) ([]*models.ComparisonDoc, error)
	UpdateRunReport(ctx context.Context, report *models.RunReport) error
	GetLatestReportByRunID(ctx context.Context, runID string) (*models.RunReport, error)
}

// Options are the run settings shared by every computation
type Options struct {
	MinimumTokenMatch   int
	DebugParser         bool
	MaxSubmissionTokens int
}

// Service runs ingestion and comparison for stored runs
type Service struct {
	submissions SubmissionStore
	results     ResultStore
	status      goredis.Cmdable
	pool        *plagiarism.WorkerPool
	opts        Options
}

// NewService creates a compute service. status may be nil to skip status publishing.
func NewService(submissions SubmissionStore, results ResultStore, status goredis.Cmdable, pool *plagiarism.WorkerPool, opts Options) *Service {
	return &Service{
		submissions: submissions,
		results:     results,
		status:      status,
		pool:        pool,
		opts:        opts,
	}
}

// ComputeRun parses all submissions of runID, compares every valid pair and
// stores comparisons plus the run report. A fatal ingestion error is stored
// as a failed report and returned, also when ctx was cancelled or timed out.
func (s *Service) ComputeRun(ctx context.Context, runID string) (*models.RunReport, error) {
	start := time.Now()
	report, err := s.computeRun(ctx, runID, start)
	if err != nil {
		metrics.RunCount.WithLabelValues("failed").Inc()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureTimeout)
		defer cancel()
		s.updateStatus(ctx, runID, models.StepFailed)
		failed := &models.RunReport{
			RunID:             runID,
			Status:            "failed",
			Error:             err.Error(),
			MinimumTokenMatch: s.opts.MinimumTokenMatch,
			DurationMillis:    time.Since(start).Milliseconds(),
		}
		if uerr := s.results.UpdateRunReport(ctx, failed); uerr != nil {
			log.Error().Err(uerr).Str("runId", runID).Msg("Failed to store failed report")
		}
		return nil, err
	}

	metrics.RunCount.WithLabelValues("completed").Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	s.updateStatus(ctx, runID, models.StepCompleted)
	return report, nil
}

func (s *Service) computeRun(ctx context.Context, runID string, start time.Time) (*models.RunReport, error) {
	s.updateStatus(ctx, runID, models.StepParsing)

	artifacts, err := s.submissions.GetArtifactsByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("no submissions found for runId: %s", runID)
	}

	submissions, basecode, err := preprocess.SplitArtifacts(artifacts)
	if err != nil {
		return nil, err
	}

	source := preprocess.NewArtifactTokenSource(artifacts, s.opts.MaxSubmissionTokens)
	collector := plagiarism.NewCollector(log.With().Str("runId", runID).Logger())

	set, err := plagiarism.NewSubmissionSet(ctx, submissions, basecode, source, collector, s.pool, plagiarism.Options{
		MinimumTokenMatch: s.opts.MinimumTokenMatch,
		DebugParser:       s.opts.DebugParser,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ingest submissions: %w", err)
	}

	s.updateStatus(ctx, runID, models.StepComparing)

	out, err := plagiarism.RunDetailed(ctx, set, s.opts.MinimumTokenMatch, s.pool)
	if err != nil {
		return nil, fmt.Errorf("failed to compare submissions: %w", err)
	}

	docs := make([]*models.ComparisonDoc, len(out.Comparisons))
	for i, c := range out.Comparisons {
		docs[i] = ToDoc(runID, c)
	}
	if err := s.results.ReplaceComparisons(ctx, runID, docs); err != nil {
		return nil, err
	}

	stats := set.Stats()
	runStats := plagiarism.Statistics(out.Comparisons)
	report := &models.RunReport{
		RunID:              runID,
		Status:             "completed",
		MinimumTokenMatch:  s.opts.MinimumTokenMatch,
		HasBasecode:        set.HasBasecode(),
		ValidSubmissions:   submissionIDs(set.ValidSubmissions()),
		InvalidSubmissions: submissionIDs(set.InvalidSubmissions()),
		ParseErrors:        stats.ParseErrors,
		TooShort:           stats.TooShort,
		Comparisons:        runStats.Comparisons,
		AverageSimilarity:  runStats.AverageSimilarity,
		MaxSimilarity:      runStats.MaxSimilarity,
		DurationMillis:     time.Since(start).Milliseconds(),
	}
	if set.HasBasecode() {
		report.NeutralizedTokens = make(map[string]int, len(out.Masks))
		for id, mask := range out.Masks {
			report.NeutralizedTokens[id] = mask.Len()
		}
	}
	if err := s.results.UpdateRunReport(ctx, report); err != nil {
		return nil, err
	}

	log.Info().
		Str("runId", runID).
		Int("valid", len(report.ValidSubmissions)).
		Int("invalid", len(report.InvalidSubmissions)).
		Int("comparisons", report.Comparisons).
		Float64("maxSimilarity", report.MaxSimilarity).
		Msg("Computation completed successfully")

	for _, c := range plagiarism.TopComparisons(out.Comparisons, topLogged) {
		log.Debug().
			Str("runId", runID).
			Str("submissionA", c.SubmissionA).
			Str("submissionB", c.SubmissionB).
			Float64("similarity", c.Similarity).
			Msg("Top comparison")
	}

	return report, nil
}

func (s *Service) updateStatus(ctx context.Context, runID string, step models.Step) {
	if s.status == nil {
		return
	}
	if err := plagiarism.UpdateStatus(ctx, s.status, runID, step); err != nil {
		log.Warn().Err(err).Str("runId", runID).Str("step", string(step)).Msg("Failed to update status")
	}
}

// ToDoc converts a comparison result into its stored form
func ToDoc(runID string, c plagiarism.ComparisonResult) *models.ComparisonDoc {
	matches := make([]models.MatchDoc, len(c.Matches))
	for i, m := range c.Matches {
		matches[i] = models.MatchDoc{
			StartA: m.StartA,
			EndA:   m.EndA,
			StartB: m.StartB,
			EndB:   m.EndB,
			Length: m.Length,
		}
	}
	return &models.ComparisonDoc{
		RunID:             runID,
		SubmissionA:       c.SubmissionA,
		SubmissionB:       c.SubmissionB,
		Similarity:        c.Similarity,
		MaximumSimilarity: c.MaximumSimilarity,
		MinimumSimilarity: c.MinimumSimilarity,
		MatchedTokens:     c.MatchedTokens,
		Matches:           matches,
	}
}

func submissionIDs(submissions []*plagiarism.Submission) []string {
	ids := make([]string, len(submissions))
	for i, s := range submissions {
		ids[i] = s.ID
	}
	return ids
}
