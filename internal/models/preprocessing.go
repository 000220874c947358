package models

// PreprocessingResponse represents the response from Astra preprocessing API
type PreprocessingResponse struct {
	SubmissionID  string            `json:"submissionId"`
	Language      string            `json:"language"`
	Preprocessing PreprocessingData `json:"preprocessing"`
}

// PreprocessingData contains the token stream of one submission
type PreprocessingData struct {
	Tokens []Token `json:"tokens"`
}

// PreprocessingError represents an error response from Astra API
type PreprocessingError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
