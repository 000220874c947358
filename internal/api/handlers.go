package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/RishiKendai/aegis-tiling/internal/compute"
	"github.com/RishiKendai/aegis-tiling/internal/models"
	"github.com/RishiKendai/aegis-tiling/internal/plagiarism"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Runner executes a comparison run
type Runner interface {
	ComputeRun(ctx context.Context, runID string) (*models.RunReport, error)
}

// Handler holds dependencies for handlers
type Handler struct {
	submissions    compute.SubmissionStore
	results        compute.ResultStore
	runner         Runner
	status         goredis.Cmdable
	computeSem     chan struct{} // Semaphore for bounded concurrency
	computeTimeout time.Duration
}

// NewHandler creates a new handler. status may be nil.
func NewHandler(
	submissions compute.SubmissionStore,
	results compute.ResultStore,
	runner Runner,
	status goredis.Cmdable,
	maxConcurrent int,
	computeTimeout time.Duration,
) *Handler {
	return &Handler{
		submissions:    submissions,
		results:        results,
		runner:         runner,
		status:         status,
		computeSem:     make(chan struct{}, maxConcurrent),
		computeTimeout: computeTimeout,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// Compute starts a comparison run in the background and answers 202
func (h *Handler) Compute(c *gin.Context) {
	var req models.ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if err := validateComputePayload(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_RUN_ID",
		})
		return
	}

	ctx := c.Request.Context()
	count, err := h.submissions.CountArtifactsByRunID(ctx, req.RunID)
	if err != nil {
		log.Error().Err(err).Str("runId", req.RunID).Msg("Failed to count submissions")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to check submissions",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "No submissions found for runId",
			Code:  "RUN_ID_NOT_FOUND",
		})
		return
	}

	// Acquire semaphore (bounded concurrency)
	select {
	case h.computeSem <- struct{}{}:
	default:
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "Too many runs in progress",
			Code:  "COMPUTE_BUSY",
		})
		return
	}

	h.updateStatus(ctx, req.RunID, models.StepInitiated)

	c.JSON(http.StatusAccepted, models.ComputeResponse{
		Step:  models.StepInitiated,
		RunID: req.RunID,
	})

	go h.processComputation(req.RunID)
}

// processComputation processes computation asynchronously
func (h *Handler) processComputation(runID string) {
	defer func() { <-h.computeSem }() // Release semaphore

	ctx, cancel := context.WithTimeout(context.Background(), h.computeTimeout)
	defer cancel()

	if _, err := h.runner.ComputeRun(ctx, runID); err != nil {
		log.Error().Err(err).Str("runId", runID).Msg("Computation failed")
		return
	}

	log.Debug().Str("runId", runID).Msg("Computation completed successfully")
}

// GetRun returns the latest report and the current step of a run
func (h *Handler) GetRun(c *gin.Context) {
	runID := c.Param("runId")
	ctx := c.Request.Context()

	report, err := h.results.GetLatestReportByRunID(ctx, runID)
	if err != nil {
		log.Error().Err(err).Str("runId", runID).Msg("Failed to get run report")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to get run report",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	step := models.StepIdle
	if h.status != nil {
		if step, err = plagiarism.GetStatus(ctx, h.status, runID); err != nil {
			log.Warn().Err(err).Str("runId", runID).Msg("Failed to read run status")
			step = models.StepIdle
		}
	}

	if report == nil && step == models.StepIdle {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Run not found",
			Code:  "RUN_NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runId":  runID,
		"step":   step,
		"report": report,
	})
}

// GetComparisons lists the comparisons of a run, most similar first
func (h *Handler) GetComparisons(c *gin.Context) {
	runID := c.Param("runId")

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "limit must be a non-negative integer",
			Code:  "INVALID_LIMIT",
		})
		return
	}

	comparisons, err := h.results.GetComparisonsByRunID(c.Request.Context(), runID, limit)
	if err != nil {
		log.Error().Err(err).Str("runId", runID).Msg("Failed to get comparisons")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to get comparisons",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	if comparisons == nil {
		comparisons = []*models.ComparisonDoc{}
	}

	c.JSON(http.StatusOK, gin.H{
		"runId":       runID,
		"comparisons": comparisons,
	})
}

func (h *Handler) updateStatus(ctx context.Context, runID string, step models.Step) {
	if h.status == nil {
		return
	}
	if err := plagiarism.UpdateStatus(ctx, h.status, runID, step); err != nil {
		log.Warn().Err(err).Str("runId", runID).Msg("Failed to update initiated status")
	}
}

func validateComputePayload(req models.ComputeRequest) error {
	if req.RunID == "" {
		return fmt.Errorf("runId is required")
	}
	if len(req.RunID) > 128 {
		return fmt.Errorf("runId must be at most 128 characters")
	}
	return nil
}
