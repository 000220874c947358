package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RishiKendai/aegis-tiling/internal/metrics"
	"github.com/RishiKendai/aegis-tiling/internal/models"
	"github.com/rs/zerolog/log"
)

// Options configures ingestion
type Options struct {
	// MinimumTokenMatch is both the validity threshold of a submission and
	// the minimum tile length of the comparison.
	MinimumTokenMatch int
	DebugParser       bool
}

// Stats are the ingestion counters handed to summary reporting
type Stats struct {
	Submissions int
	Valid       int
	ParseErrors int
	TooShort    int
	Duration    time.Duration
}

// SubmissionSet owns all submissions of a run plus the optional basecode.
type SubmissionSet struct {
	all      []*Submission
	valid    []*Submission
	invalid  []*Submission
	basecode *Submission
	stats    Stats
}

// parseOutcome is what one parse worker hands back to the reducer
type parseOutcome struct {
	tokens  []models.Token
	err     error
	skipped bool
}

// NewSubmissionSet parses the basecode, then every submission, and
// partitions the submissions into valid and invalid ones.
//
// A failing basecode returns a *BasecodeError before any submission is
// parsed. A TokenSource returning ErrOutOfMemory aborts the batch with a
// *SubmissionError naming the submission. Every other failure only marks the
// affected submission as erroneous.
func NewSubmissionSet(
	ctx context.Context,
	submissions []*Submission,
	basecode *Submission,
	source TokenSource,
	collector ErrorCollector,
	pool *WorkerPool,
	opts Options,
) (*SubmissionSet, error) {
	if source == nil {
		return nil, errors.New("token source is required")
	}
	if collector == nil {
		return nil, errors.New("error collector is required")
	}
	if opts.MinimumTokenMatch < 1 {
		return nil, fmt.Errorf("%w: minimum token match %d must be at least 1", ErrInvalidInput, opts.MinimumTokenMatch)
	}

	set := &SubmissionSet{
		all:      submissions,
		basecode: basecode,
	}

	if basecode != nil {
		if err := set.parseBasecode(ctx, source, collector, opts); err != nil {
			return nil, err
		}
	}

	if err := set.parseSubmissions(ctx, source, collector, pool, opts); err != nil {
		return nil, err
	}

	if collector.HasErrors() {
		collector.PrintCollectedErrors()
	}

	for _, s := range set.all {
		if s.HasErrors() {
			set.invalid = append(set.invalid, s)
		} else {
			set.valid = append(set.valid, s)
		}
	}
	set.stats.Valid = len(set.valid)

	return set, nil
}

func (s *SubmissionSet) HasBasecode() bool {
	return s.basecode != nil
}

// Basecode returns the basecode submission. Callers must check HasBasecode
// first; asking for a missing basecode panics.
func (s *SubmissionSet) Basecode() *Submission {
	if s.basecode == nil {
		panic(ErrNoBasecode)
	}
	return s.basecode
}

// NumberOfSubmissions returns the number of valid submissions
func (s *SubmissionSet) NumberOfSubmissions() int {
	return len(s.valid)
}

// ValidSubmissions returns the valid submissions in input order
func (s *SubmissionSet) ValidSubmissions() []*Submission {
	return s.valid
}

// InvalidSubmissions returns the erroneous submissions in input order
func (s *SubmissionSet) InvalidSubmissions() []*Submission {
	return s.invalid
}

// All returns every submission in input order, the basecode excluded
func (s *SubmissionSet) All() []*Submission {
	return s.all
}

func (s *SubmissionSet) Stats() Stats {
	return s.stats
}

func (s *SubmissionSet) parseBasecode(ctx context.Context, source TokenSource, collector ErrorCollector, opts Options) error {
	basecode := s.basecode
	startTime := time.Now()
	collector.Print("----- Parsing basecode submission: "+basecode.ID, "")
	collector.SetCurrentSubmissionName(basecode.ID)

	tokens, err := source.Parse(ctx, basecode, opts.DebugParser)
	if err != nil {
		if errors.Is(err, ErrOutOfMemory) {
			return &SubmissionError{
				Submission: basecode.ID,
				Err:        fmt.Errorf("out of memory during parsing of submission %q: %w", basecode.ID, err),
			}
		}
		collector.AddError(err.Error())
		basecode.markErroneous(err.Error())
		collector.PrintCollectedErrors()
		return &BasecodeError{
			Submission: basecode.ID,
			Reason:     "could not successfully parse basecode submission",
			Err:        err,
		}
	}
	if len(tokens) < opts.MinimumTokenMatch {
		basecode.markErroneous("basecode contains fewer tokens than minimum match length allows")
		return &BasecodeError{
			Submission: basecode.ID,
			Reason:     fmt.Sprintf("basecode submission contains fewer tokens (%d) than minimum match length (%d) allows", len(tokens), opts.MinimumTokenMatch),
		}
	}
	basecode.markValid(tokens)

	collector.Print("Basecode submission parsed!", "")
	collector.Print("", "Time for parsing Basecode: "+formatDuration(time.Since(startTime)))

	return nil
}

func (s *SubmissionSet) parseSubmissions(ctx context.Context, source TokenSource, collector ErrorCollector, pool *WorkerPool, opts Options) error {
	submissions := s.all
	s.stats.Submissions = len(submissions)
	if len(submissions) == 0 {
		collector.Print("No submissions to parse!", "")
		return nil
	}

	startTime := time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]parseOutcome, len(submissions))
	jobs := make([]Job, len(submissions))
	for i, submission := range submissions {
		i, submission := i, submission
		jobs[i] = JobFunc(func(ctx context.Context) error {
			if ctx.Err() != nil {
				outcomes[i] = parseOutcome{skipped: true}
				return nil
			}
			tokens, err := source.Parse(ctx, submission, opts.DebugParser)
			if errors.Is(err, ErrOutOfMemory) {
				cancel()
			}
			outcomes[i] = parseOutcome{tokens: tokens, err: err}
			return nil
		})
	}

	if err := dispatch(runCtx, pool, jobs); err != nil {
		return fmt.Errorf("failed to parse submissions: %w", err)
	}

	for i, o := range outcomes {
		if errors.Is(o.err, ErrOutOfMemory) {
			return &SubmissionError{
				Submission: submissions[i].ID,
				Err:        fmt.Errorf("out of memory during parsing of submission %q: %w", submissions[i].ID, o.err),
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("parsing cancelled: %w", err)
	}

	// single reducer: outcomes are applied in input order
	for i, submission := range submissions {
		o := outcomes[i]
		collector.Print("", "------ Parsing submission: "+submission.ID)
		collector.SetCurrentSubmissionName(submission.ID)

		ok := true
		switch {
		case o.err != nil:
			collector.AddError(o.err.Error())
			submission.markErroneous(o.err.Error())
			s.stats.ParseErrors++
			metrics.SubmissionsParsed.WithLabelValues("parse_error").Inc()
			ok = false
		case len(o.tokens) < opts.MinimumTokenMatch:
			collector.AddError("Submission contains fewer tokens than minimum match length allows!")
			submission.markErroneous(fmt.Sprintf("submission contains %d tokens, minimum match length is %d", len(o.tokens), opts.MinimumTokenMatch))
			s.stats.TooShort++
			metrics.SubmissionsParsed.WithLabelValues("too_short").Inc()
			ok = false
		default:
			submission.markValid(o.tokens)
			metrics.SubmissionsParsed.WithLabelValues("ok").Inc()
		}

		if ok {
			collector.Print("", "OK")
		} else {
			collector.Print("", "ERROR -> Submission removed")
		}
	}

	s.stats.Duration = time.Since(startTime)
	s.printSummary(collector)

	log.Debug().
		Int("submissions", len(submissions)).
		Int("parseErrors", s.stats.ParseErrors).
		Int("tooShort", s.stats.TooShort).
		Dur("duration", s.stats.Duration).
		Msg("Submissions parsed")

	return nil
}

func (s *SubmissionSet) printSummary(collector ErrorCollector) {
	stats := s.stats
	valid := stats.Submissions - stats.ParseErrors - stats.TooShort

	collector.Print(fmt.Sprintf("%d submissions parsed successfully!", valid), "")
	collector.Print(fmt.Sprintf("%d parser error%s!", stats.ParseErrors, plural(stats.ParseErrors)), "")
	collector.Print(fmt.Sprintf("%d too short submission%s!", stats.TooShort, plural(stats.TooShort)), "")

	if stats.TooShort == 1 {
		collector.Print("", "1 submission is not valid because it contains fewer tokens than minimum match length allows.")
	} else if stats.TooShort > 1 {
		collector.Print("", fmt.Sprintf("%d submissions are not valid because they contain fewer tokens than minimum match length allows.", stats.TooShort))
	}

	perSubmission := stats.Duration / time.Duration(stats.Submissions)
	collector.Print("", "Total time for parsing: "+formatDuration(stats.Duration))
	collector.Print("", fmt.Sprintf("Time per parsed submission: %d msec", perSubmission.Milliseconds()))
	collector.Print("", "")
}

func plural(n int) string {
	if n != 1 {
		return "s"
	}
	return ""
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
