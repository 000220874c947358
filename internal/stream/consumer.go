package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RishiKendai/aegis-tiling/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// SubmissionProcessor tokenizes and stores one submission
type SubmissionProcessor interface {
	ProcessSubmission(ctx context.Context, submission *models.SubmissionMessage) error
}

// ConsumerOptions tunes the read loop. Zero values select the defaults.
type ConsumerOptions struct {
	BatchCount          int64
	Block               time.Duration
	PELRecoveryInterval time.Duration
	PELMinIdle          time.Duration
	CleanupInterval     time.Duration
	Retention           time.Duration
}

func (o ConsumerOptions) withDefaults() ConsumerOptions {
	if o.BatchCount <= 0 {
		o.BatchCount = 10
	}
	if o.Block <= 0 {
		o.Block = time.Second
	}
	if o.PELRecoveryInterval <= 0 {
		o.PELRecoveryInterval = 30 * time.Second
	}
	if o.PELMinIdle <= 0 {
		o.PELMinIdle = time.Minute
	}
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = time.Hour
	}
	if o.Retention <= 0 {
		o.Retention = 24 * time.Hour
	}
	return o
}

// Consumer reads submission messages from a Redis stream consumer group and
// hands them to the processor.
type Consumer struct {
	client        *redis.Client
	streamKey     string
	consumerGroup string
	consumerName  string
	processor     SubmissionProcessor
	retryHandler  *RetryHandler
	opts          ConsumerOptions
	lastPELCheck  time.Time
}

func NewConsumer(
	client *redis.Client,
	streamKey string,
	consumerGroup string,
	consumerName string,
	processor SubmissionProcessor,
	retryHandler *RetryHandler,
	opts ConsumerOptions,
) *Consumer {
	return &Consumer{
		client:        client,
		streamKey:     streamKey,
		consumerGroup: consumerGroup,
		consumerName:  consumerName,
		processor:     processor,
		retryHandler:  retryHandler,
		opts:          opts.withDefaults(),
		lastPELCheck:  time.Now(),
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	if err := c.createConsumerGroup(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create consumer group, may be already exists")
	}

	// crash recovery: messages delivered to a dead consumer stay in the PEL
	if err := c.recoverPEL(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to recover PEL messages on startup")
	}
	c.lastPELCheck = time.Now()

	go c.runCleanupPeriodically(ctx)
	log.Info().
		Str("stream", c.streamKey).
		Str("consumer", c.consumerName).
		Dur("cleanup_interval", c.opts.CleanupInterval).
		Dur("retention", c.opts.Retention).
		Msg("Submission consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.consume(ctx); err != nil {
				log.Error().Err(err).Msg("Error consuming messages")
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (c *Consumer) createConsumerGroup(ctx context.Context) error {
	// MKSTREAM will create the stream if it doesn't exist
	err := c.client.XGroupCreateMkStream(ctx, c.streamKey, c.consumerGroup, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			log.Debug().
				Str("group", c.consumerGroup).
				Msg("Consumer group already exists")
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Info().
		Str("group", c.consumerGroup).
		Str("stream", c.streamKey).
		Msg("Created new consumer group")
	return nil
}

// recovers idle messages from the Pending Entry List
func (c *Consumer) recoverPEL(ctx context.Context) error {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.streamKey,
		Group:  c.consumerGroup,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get pending messages: %w", err)
	}

	messageIDs := make([]string, 0, len(pending))
	for _, p := range pending {
		if p.Idle >= c.opts.PELMinIdle {
			messageIDs = append(messageIDs, p.ID)
		}
	}
	if len(messageIDs) == 0 {
		return nil
	}

	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.streamKey,
		Group:    c.consumerGroup,
		Consumer: c.consumerName,
		MinIdle:  c.opts.PELMinIdle,
		Messages: messageIDs,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to claim messages: %w", err)
	}

	log.Info().
		Int("pending", len(pending)).
		Int("claimed", len(claimed)).
		Msg("Claimed idle PEL messages")

	for _, msg := range claimed {
		if err := c.processMessage(ctx, &msg); err != nil {
			log.Error().
				Err(err).
				Str("message_id", msg.ID).
				Msg("Failed to process claimed PEL message")
		}
	}

	return nil
}

func (c *Consumer) consume(ctx context.Context) error {
	if time.Since(c.lastPELCheck) > c.opts.PELRecoveryInterval {
		if err := c.recoverPEL(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to recover PEL messages")
		}
		c.lastPELCheck = time.Now()
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.consumerGroup,
		Consumer: c.consumerName,
		Streams:  []string{c.streamKey, ">"},
		Count:    c.opts.BatchCount,
		Block:    c.opts.Block,
	}).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		if stream.Stream != c.streamKey {
			continue
		}
		for _, msg := range stream.Messages {
			if err := c.processMessage(ctx, &msg); err != nil {
				log.Error().
					Err(err).
					Str("message_id", msg.ID).
					Msg("Failed to process message")
			}
		}
	}

	return nil
}

func (c *Consumer) processMessage(ctx context.Context, msg *redis.XMessage) error {
	streamMsg := NewStreamMessage(msg)

	submission, err := ParseSubmission(streamMsg)
	if err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to parse submission message")
		// malformed messages never succeed, drop them
		_ = c.acknowledge(ctx, msg.ID)
		return err
	}

	err = c.retryHandler.RetryWithBackoff(ctx, func() error {
		return c.processor.ProcessSubmission(ctx, submission)
	}, msg.ID, streamMsg.Values())
	if err != nil {
		// dead-lettered by the retry handler
		_ = c.acknowledge(ctx, msg.ID)
		return err
	}

	log.Debug().
		Str("runId", submission.RunID).
		Str("submissionId", submission.SubmissionID).
		Bool("basecode", submission.Basecode).
		Msg("Submission tokenized")

	return c.acknowledge(ctx, msg.ID)
}

// removes messages older than the retention duration
func (c *Consumer) cleanupOldMessages(ctx context.Context) error {
	cutoffTime := time.Now().Add(-c.opts.Retention)
	minID := fmt.Sprintf("%d-0", cutoffTime.UnixMilli())

	trimmed, err := c.client.XTrimMinID(ctx, c.streamKey, minID).Result()
	if err != nil {
		return fmt.Errorf("failed to trim stream: %w", err)
	}

	if trimmed > 0 {
		log.Debug().
			Int64("trimmed", trimmed).
			Str("cutoff_time", cutoffTime.Format(time.RFC3339)).
			Msg("Cleaned up old messages from stream")
	}

	return nil
}

func (c *Consumer) runCleanupPeriodically(ctx context.Context) {
	ticker := time.NewTicker(c.opts.CleanupInterval)
	defer ticker.Stop()

	if err := c.cleanupOldMessages(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to run initial cleanup")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Cleanup goroutine shutting down")
			return
		case <-ticker.C:
			if err := c.cleanupOldMessages(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old messages")
			}
		}
	}
}

func (c *Consumer) acknowledge(ctx context.Context, messageID string) error {
	err := c.client.XAck(ctx, c.streamKey, c.consumerGroup, messageID).Err()
	if err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("Failed to acknowledge message")
		return err
	}
	return nil
}
