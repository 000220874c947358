package stream

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/RishiKendai/aegis-tiling/internal/models"
	"github.com/redis/go-redis/v9"
)

// StreamMessage is the string view of one stream entry
type StreamMessage struct {
	ID     string
	Fields map[string]string
}

// NewStreamMessage keeps the string valued fields of msg
func NewStreamMessage(msg *redis.XMessage) *StreamMessage {
	fields := make(map[string]string, len(msg.Values))
	for key, val := range msg.Values {
		if value, ok := val.(string); ok {
			fields[key] = value
		}
	}
	return &StreamMessage{
		ID:     msg.ID,
		Fields: fields,
	}
}

// Values converts the fields back for XADD
func (m *StreamMessage) Values() map[string]interface{} {
	values := make(map[string]interface{}, len(m.Fields))
	for k, v := range m.Fields {
		values[k] = v
	}
	return values
}

// ParseSubmission reads a submission message. runId, submissionId and
// sourceCode are required; basecode defaults to false.
func ParseSubmission(msg *StreamMessage) (*models.SubmissionMessage, error) {
	submission := &models.SubmissionMessage{
		RunID:        strings.TrimSpace(msg.Fields["runId"]),
		SubmissionID: strings.TrimSpace(msg.Fields["submissionId"]),
		Language:     strings.TrimSpace(msg.Fields["language"]),
		SourceCode:   msg.Fields["sourceCode"],
	}

	if submission.RunID == "" {
		return nil, fmt.Errorf("message %s: runId is required", msg.ID)
	}
	if submission.SubmissionID == "" {
		return nil, fmt.Errorf("message %s: submissionId is required", msg.ID)
	}
	if submission.SourceCode == "" {
		return nil, fmt.Errorf("message %s: sourceCode is required", msg.ID)
	}

	if raw, ok := msg.Fields["basecode"]; ok && raw != "" {
		basecode, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("message %s: invalid basecode flag %q: %w", msg.ID, raw, err)
		}
		submission.Basecode = basecode
	}

	return submission, nil
}
