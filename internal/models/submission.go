package models

import "time"

// Token is one semantic unit produced by a language front end.
// Two tokens are equal when their Type is equal; the remaining fields only
// locate the token in its source.
type Token struct {
	Type       string `bson:"type" json:"type"`
	Submission string `bson:"submission,omitempty" json:"submission,omitempty"`
	File       string `bson:"file,omitempty" json:"file,omitempty"`
	Line       int    `bson:"line,omitempty" json:"line,omitempty"`
	Column     int    `bson:"column,omitempty" json:"column,omitempty"`
}

// SubmissionMessage represents a submission read from the Redis stream
type SubmissionMessage struct {
	RunID        string `json:"runId"`
	SubmissionID string `json:"submissionId"`
	Language     string `json:"language"`
	SourceCode   string `json:"sourceCode"`
	Basecode     bool   `json:"basecode"`
}

// Artifact is a tokenized submission stored in MongoDB.
// ParseError is set instead of Tokens when the front end rejected the source.
type Artifact struct {
	RunID        string    `bson:"runId" json:"runId"`
	SubmissionID string    `bson:"submissionId" json:"submissionId"`
	Language     string    `bson:"language" json:"language"`
	SourceCode   string    `bson:"sourceCode" json:"sourceCode"`
	Basecode     bool      `bson:"basecode" json:"basecode"`
	Tokens       []Token   `bson:"tokens" json:"tokens"`
	ParseError   string    `bson:"parseError,omitempty" json:"parseError,omitempty"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}
