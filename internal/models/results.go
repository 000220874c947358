package models

import (
	"time"
)

type Step string

const (
	StepIdle      Step = "idle"
	StepInitiated Step = "initiated"
	StepParsing   Step = "parsing"
	StepComparing Step = "comparing"
	StepCompleted Step = "completed"
	StepFailed    Step = "failed"
)

// MatchDoc is one tiled region shared by two submissions
type MatchDoc struct {
	StartA int `bson:"startA" json:"startA"`
	EndA   int `bson:"endA" json:"endA"`
	StartB int `bson:"startB" json:"startB"`
	EndB   int `bson:"endB" json:"endB"`
	Length int `bson:"length" json:"length"`
}

// ComparisonDoc represents a stored pairwise comparison
type ComparisonDoc struct {
	RunID             string     `bson:"runId" json:"runId"`
	SubmissionA       string     `bson:"submissionA" json:"submissionA"`
	SubmissionB       string     `bson:"submissionB" json:"submissionB"`
	Similarity        float64    `bson:"similarity" json:"similarity"`
	MaximumSimilarity float64    `bson:"maximumSimilarity" json:"maximumSimilarity"`
	MinimumSimilarity float64    `bson:"minimumSimilarity" json:"minimumSimilarity"`
	MatchedTokens     int        `bson:"matchedTokens" json:"matchedTokens"`
	Matches           []MatchDoc `bson:"matches" json:"matches"`
	CreatedAt         time.Time  `bson:"createdAt" json:"createdAt"`
}

// RunReport represents the outcome of one comparison run
type RunReport struct {
	RunID             string `bson:"runId" json:"runId"`
	Status            string `bson:"status" json:"status"` // completed, failed
	Error             string `bson:"error,omitempty" json:"error,omitempty"`
	MinimumTokenMatch int    `bson:"minimumTokenMatch" json:"minimumTokenMatch"`
	HasBasecode       bool   `bson:"hasBasecode" json:"hasBasecode"`
	// NeutralizedTokens counts the basecode tokens masked per submission
	NeutralizedTokens  map[string]int `bson:"neutralizedTokens,omitempty" json:"neutralizedTokens,omitempty"`
	ValidSubmissions   []string       `bson:"validSubmissions" json:"validSubmissions"`
	InvalidSubmissions []string       `bson:"invalidSubmissions" json:"invalidSubmissions"`
	ParseErrors        int            `bson:"parseErrors" json:"parseErrors"`
	TooShort           int            `bson:"tooShort" json:"tooShort"`
	Comparisons        int            `bson:"comparisons" json:"comparisons"`
	AverageSimilarity  float64        `bson:"averageSimilarity" json:"averageSimilarity"`
	MaxSimilarity      float64        `bson:"maxSimilarity" json:"maxSimilarity"`
	DurationMillis     int64          `bson:"durationMillis" json:"durationMillis"`
	CreatedAt          time.Time      `bson:"createdAt" json:"createdAt"`
}

// ComputeRequest represents a request to compare all submissions of a run
type ComputeRequest struct {
	RunID string `json:"runId" binding:"required"`
}

// ComputeResponse represents the response from compute endpoint
type ComputeResponse struct {
	Step  Step   `json:"step"`
	RunID string `json:"runId"`
}
