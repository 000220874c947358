package preprocess

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/RishiKendai/aegis-tiling/internal/models"
	"github.com/RishiKendai/aegis-tiling/internal/plagiarism"
	"github.com/rs/zerolog/log"
)

// ErrParseFailed is returned when the front end rejects the source code.
// Other errors are transport failures and may be retried.
var ErrParseFailed = errors.New("parse failed")

// AstraClient handles communication with Astra tokenizer API
type AstraClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAstraClient creates a new Astra API client
func NewAstraClient(baseURL, apiKey string) *AstraClient {
	return &AstraClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

// PreprocessRequest represents the request to Astra API
type PreprocessRequest struct {
	SubmissionID string `json:"submissionId"`
	Code         string `json:"sourceCode"`
	Language     string `json:"language"`
	Debug        bool   `json:"debug,omitempty"`
}

func (c *AstraClient) Preprocess(ctx context.Context, req *PreprocessRequest) (*models.PreprocessingResponse, error) {
	url := fmt.Sprintf("%s/api/v1/tokenize", c.baseURL)

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	log.Trace().
		Str("submissionId", req.SubmissionID).
		Int("bytes", len(reqBody)).
		Msg("Sending tokenize request")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Source rejected by the front end
	if resp.StatusCode == http.StatusBadRequest ||
		resp.StatusCode == http.StatusUnsupportedMediaType ||
		resp.StatusCode == http.StatusUnprocessableEntity {
		var errResp models.PreprocessingError
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, fmt.Errorf("%w: status %d: %s", ErrParseFailed, resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("%w: %s - %s", ErrParseFailed, errResp.Error, errResp.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var preprocessingResp models.PreprocessingResponse
	if err := json.Unmarshal(body, &preprocessingResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &preprocessingResp, nil
}

// Parse implements plagiarism.TokenSource against the live front end
func (c *AstraClient) Parse(ctx context.Context, submission *plagiarism.Submission, debug bool) ([]models.Token, error) {
	resp, err := c.Preprocess(ctx, &PreprocessRequest{
		SubmissionID: submission.ID,
		Code:         submission.Source,
		Language:     submission.Language,
		Debug:        debug,
	})
	if err != nil {
		return nil, err
	}
	return stampTokens(submission.ID, resp.Preprocessing.Tokens), nil
}

// stampTokens sets the owning submission on every token
func stampTokens(submissionID string, tokens []models.Token) []models.Token {
	for i := range tokens {
		tokens[i].Submission = submissionID
	}
	return tokens
}
