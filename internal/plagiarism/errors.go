package plagiarism

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a violated precondition of the tiling engine.
	ErrInvalidInput = errors.New("invalid input")
	// ErrOutOfMemory is returned by a TokenSource that ran out of resources
	// while parsing. It aborts the whole batch.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrNoBasecode is the panic value of SubmissionSet.Basecode when no basecode exists.
	ErrNoBasecode = errors.New("querying a non-existing basecode submission")
)

// SubmissionError is a fatal ingestion failure tied to one submission.
type SubmissionError struct {
	Submission string
	Err        error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission %q: %v", e.Submission, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// BasecodeError reports that the basecode could not be used. It always aborts the run.
type BasecodeError struct {
	Submission string
	Reason     string
	Err        error
}

func (e *BasecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("basecode %q: %s: %v", e.Submission, e.Reason, e.Err)
	}
	return fmt.Sprintf("basecode %q: %s", e.Submission, e.Reason)
}

func (e *BasecodeError) Unwrap() error {
	return e.Err
}
