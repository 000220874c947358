package plagiarism

import (
	"context"
	"fmt"
	"time"

	"github.com/RishiKendai/aegis-tiling/internal/models"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const statusTTL = 12 * time.Hour

// StatusKey is the Redis key holding the current step of a run
func StatusKey(runID string) string {
	return "comparison_run_status:" + runID
}

func UpdateStatus(ctx context.Context, client goredis.Cmdable, runID string, step models.Step) error {
	validSteps := map[models.Step]bool{
		models.StepIdle:      true,
		models.StepInitiated: true,
		models.StepParsing:   true,
		models.StepComparing: true,
		models.StepCompleted: true,
		models.StepFailed:    true,
	}
	if !validSteps[step] {
		return fmt.Errorf("unknown step: %s", step)
	}

	rkey := StatusKey(runID)

	err := client.Set(ctx, rkey, string(step), statusTTL).Err()
	if err != nil {
		log.Error().Err(err).
			Str("step", string(step)).
			Str("runId", runID).
			Str("redisKey", rkey).
			Msg("Failed to update status in Redis")
		return fmt.Errorf("failed to update status in Redis: %w", err)
	}

	log.Trace().
		Str("step", string(step)).
		Str("runId", runID).
		Msg("Status updated in Redis")

	return nil
}

// GetStatus returns the current step of a run, StepIdle when unknown
func GetStatus(ctx context.Context, client goredis.Cmdable, runID string) (models.Step, error) {
	val, err := client.Get(ctx, StatusKey(runID)).Result()
	if err == goredis.Nil {
		return models.StepIdle, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read status from Redis: %w", err)
	}
	return models.Step(val), nil
}
