package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RetryHandler retries submission processing with exponential backoff and
// moves exhausted messages to a dead letter stream.
type RetryHandler struct {
	client        *redis.Client
	deadLetterKey string
	maxRetries    int
	baseDelay     time.Duration
	maxDelay      time.Duration
}

func NewRetryHandler(client *redis.Client, deadLetterKey string) *RetryHandler {
	return &RetryHandler{
		client:        client,
		deadLetterKey: deadLetterKey,
		maxRetries:    3,
		baseDelay:     500 * time.Millisecond,
		maxDelay:      10 * time.Second,
	}
}

// Backoff returns the delay before the given retry attempt (1-based)
func (h *RetryHandler) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return h.baseDelay
	}
	delay := h.baseDelay << (attempt - 1)
	if delay <= 0 || delay > h.maxDelay {
		return h.maxDelay
	}
	return delay
}

func (h *RetryHandler) RetryWithBackoff(ctx context.Context, fn func() error, messageID string, fields map[string]interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(h.Backoff(attempt)):
			}
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		log.Warn().
			Err(lastErr).
			Str("message_id", messageID).
			Int("attempt", attempt+1).
			Msg("Processing attempt failed")
	}

	if err := h.sendToDeadLetter(ctx, messageID, fields, lastErr); err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("Failed to dead-letter message")
	}

	return fmt.Errorf("processing failed after %d attempts: %w", h.maxRetries+1, lastErr)
}

func (h *RetryHandler) sendToDeadLetter(ctx context.Context, messageID string, fields map[string]interface{}, cause error) error {
	values := make(map[string]interface{}, len(fields)+3)
	for k, v := range fields {
		values[k] = v
	}
	values["originalId"] = messageID
	values["error"] = cause.Error()
	values["failedAt"] = time.Now().UTC().Format(time.RFC3339)

	if err := h.client.XAdd(ctx, &redis.XAddArgs{
		Stream: h.deadLetterKey,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to dead letter stream: %w", err)
	}

	log.Warn().
		Str("message_id", messageID).
		Str("stream", h.deadLetterKey).
		Msg("Message moved to dead letter stream")
	return nil
}
