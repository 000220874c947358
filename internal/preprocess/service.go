package preprocess

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RishiKendai/aegis-tiling/internal/models"
	"github.com/rs/zerolog/log"
)

// Tokenizer produces the token stream of a submission
type Tokenizer interface {
	Preprocess(ctx context.Context, req *PreprocessRequest) (*models.PreprocessingResponse, error)
}

// ArtifactStore persists tokenized submissions
type ArtifactStore interface {
	UpsertArtifact(ctx context.Context, artifact *models.Artifact) error
}

type Service struct {
	client        Tokenizer
	artifactsRepo ArtifactStore
}

func NewService(client Tokenizer, artifactsRepo ArtifactStore) *Service {
	return &Service{
		client:        client,
		artifactsRepo: artifactsRepo,
	}
}

// ProcessSubmission tokenizes a submission and stores the result. A source
// rejected by the front end is stored with its parse error so ingestion can
// mark it erroneous later; transport errors are returned for retry.
func (s *Service) ProcessSubmission(ctx context.Context, submission *models.SubmissionMessage) error {
	preprocessReq := &PreprocessRequest{
		SubmissionID: submission.SubmissionID,
		Code:         submission.SourceCode,
		Language:     submission.Language,
	}

	artifact := &models.Artifact{
		RunID:        submission.RunID,
		SubmissionID: submission.SubmissionID,
		Language:     submission.Language,
		SourceCode:   submission.SourceCode,
		Basecode:     submission.Basecode,
		CreatedAt:    time.Now(),
	}

	preprocessResp, err := s.client.Preprocess(ctx, preprocessReq)
	switch {
	case errors.Is(err, ErrParseFailed):
		artifact.ParseError = err.Error()
		log.Warn().
			Err(err).
			Str("runId", submission.RunID).
			Str("submissionId", submission.SubmissionID).
			Msg("Submission rejected by tokenizer")
	case err != nil:
		return fmt.Errorf("failed to preprocess: %w", err)
	default:
		artifact.Tokens = stampTokens(submission.SubmissionID, preprocessResp.Preprocessing.Tokens)
	}

	if err := s.artifactsRepo.UpsertArtifact(ctx, artifact); err != nil {
		return fmt.Errorf("failed to store artifact: %w", err)
	}

	return nil
}
