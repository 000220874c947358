package preprocess

import (
	"context"
	"fmt"

	"github.com/RishiKendai/aegis-tiling/internal/models"
	"github.com/RishiKendai/aegis-tiling/internal/plagiarism"
	"github.com/rs/zerolog/log"
)

// ArtifactTokenSource serves tokens that were stored by the stream consumer.
type ArtifactTokenSource struct {
	artifacts map[string]*models.Artifact
	maxTokens int
}

// NewArtifactTokenSource indexes artifacts by submission id. maxTokens > 0
// caps the size of a single token sequence; larger ones are reported as
// plagiarism.ErrOutOfMemory.
func NewArtifactTokenSource(artifacts []*models.Artifact, maxTokens int) *ArtifactTokenSource {
	index := make(map[string]*models.Artifact, len(artifacts))
	for _, a := range artifacts {
		index[a.SubmissionID] = a
	}
	return &ArtifactTokenSource{
		artifacts: index,
		maxTokens: maxTokens,
	}
}

func (s *ArtifactTokenSource) Parse(ctx context.Context, submission *plagiarism.Submission, debug bool) ([]models.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	artifact, ok := s.artifacts[submission.ID]
	if !ok {
		return nil, fmt.Errorf("%w: no tokens stored for submission %q", ErrParseFailed, submission.ID)
	}
	if artifact.ParseError != "" {
		return nil, fmt.Errorf("%w: %s", ErrParseFailed, artifact.ParseError)
	}
	if s.maxTokens > 0 && len(artifact.Tokens) > s.maxTokens {
		return nil, fmt.Errorf("%w: %d tokens exceed the limit of %d", plagiarism.ErrOutOfMemory, len(artifact.Tokens), s.maxTokens)
	}

	if debug {
		log.Debug().
			Str("submission", submission.ID).
			Int("tokens", len(artifact.Tokens)).
			Msg("Loaded stored tokens")
	}

	tokens := make([]models.Token, len(artifact.Tokens))
	copy(tokens, artifact.Tokens)
	return stampTokens(submission.ID, tokens), nil
}

// SplitArtifacts turns stored artifacts into submissions, separating the
// basecode. More than one basecode artifact, or two artifacts sharing a
// submission id, is an error.
func SplitArtifacts(artifacts []*models.Artifact) ([]*plagiarism.Submission, *plagiarism.Submission, error) {
	submissions := make([]*plagiarism.Submission, 0, len(artifacts))
	var basecode *plagiarism.Submission
	seen := make(map[string]struct{}, len(artifacts))

	for _, a := range artifacts {
		if _, dup := seen[a.SubmissionID]; dup {
			return nil, nil, fmt.Errorf("run %q has more than one artifact for submission %q", a.RunID, a.SubmissionID)
		}
		seen[a.SubmissionID] = struct{}{}

		s := plagiarism.NewSubmission(a.SubmissionID, a.Language, a.SourceCode)
		if !a.Basecode {
			submissions = append(submissions, s)
			continue
		}
		if basecode != nil {
			return nil, nil, fmt.Errorf("run %q has more than one basecode: %q and %q", a.RunID, basecode.ID, a.SubmissionID)
		}
		basecode = s
	}

	return submissions, basecode, nil
}
