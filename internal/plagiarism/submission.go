package plagiarism

import (
	"context"

	"github.com/RishiKendai/aegis-tiling/internal/models"
)

// Validity is the parse state of a submission
type Validity int

const (
	Unparsed Validity = iota
	Valid
	Erroneous
)

func (v Validity) String() string {
	switch v {
	case Valid:
		return "valid"
	case Erroneous:
		return "erroneous"
	default:
		return "unparsed"
	}
}

// TokenSource turns a submission into its token sequence.
// Implementations must be deterministic for identical input and safe for
// concurrent use.
type TokenSource interface {
	Parse(ctx context.Context, submission *Submission, debug bool) ([]models.Token, error)
}

// Submission is one unit under comparison. It is mutated only while its
// SubmissionSet is being built.
type Submission struct {
	ID       string
	Language string
	Source   string

	tokens   []models.Token
	validity Validity
	errs     []string
}

// NewSubmission creates an unparsed submission
func NewSubmission(id, language, source string) *Submission {
	return &Submission{
		ID:       id,
		Language: language,
		Source:   source,
	}
}

// Tokens returns the parsed tokens, or nil if the submission is not valid.
func (s *Submission) Tokens() []models.Token {
	return s.tokens
}

func (s *Submission) NumberOfTokens() int {
	return len(s.tokens)
}

func (s *Submission) Validity() Validity {
	return s.validity
}

// Errors returns the local errors recorded while parsing.
func (s *Submission) Errors() []string {
	return s.errs
}

func (s *Submission) HasErrors() bool {
	return s.validity == Erroneous
}

func (s *Submission) markValid(tokens []models.Token) {
	s.tokens = tokens
	s.validity = Valid
}

func (s *Submission) markErroneous(reason string) {
	s.tokens = nil
	s.validity = Erroneous
	s.errs = append(s.errs, reason)
}
