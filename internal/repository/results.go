package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/RishiKendai/aegis-tiling/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	comparisonsCollection = "comparisons"
	reportsCollection     = "run_reports"
)

type ResultsRepository struct {
	mongoRepo *MongoRepository
}

func NewResultsRepository(mongoRepo *MongoRepository) *ResultsRepository {
	return &ResultsRepository{
		mongoRepo: mongoRepo,
	}
}

// ReplaceComparisons drops earlier comparisons of the run and stores the new ones
func (r *ResultsRepository) ReplaceComparisons(ctx context.Context, runID string, comparisons []*models.ComparisonDoc) error {
	if _, err := r.mongoRepo.DeleteMany(ctx, comparisonsCollection, bson.M{"runId": runID}); err != nil {
		return fmt.Errorf("failed to delete previous comparisons: %w", err)
	}

	now := time.Now()
	docs := make([]interface{}, len(comparisons))
	for i, c := range comparisons {
		c.CreatedAt = now
		docs[i] = c
	}

	if err := r.mongoRepo.InsertMany(ctx, comparisonsCollection, docs); err != nil {
		return fmt.Errorf("failed to insert comparisons: %w", err)
	}

	return nil
}

// GetComparisonsByRunID returns the comparisons of a run, most similar first
func (r *ResultsRepository) GetComparisonsByRunID(ctx context.Context, runID string, limit int64) ([]*models.ComparisonDoc, error) {
	filter := bson.M{"runId": runID}
	opts := options.Find().SetSort(bson.D{{Key: "similarity", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.mongoRepo.FindMany(ctx, comparisonsCollection, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find comparisons: %w", err)
	}
	defer cursor.Close(ctx)

	var comparisons []*models.ComparisonDoc
	if err := cursor.All(ctx, &comparisons); err != nil {
		return nil, fmt.Errorf("failed to decode comparisons: %w", err)
	}

	return comparisons, nil
}

// UpdateRunReport overwrites the latest report of the run
func (r *ResultsRepository) UpdateRunReport(ctx context.Context, report *models.RunReport) error {
	report.CreatedAt = time.Now()
	filter := bson.M{"runId": report.RunID}
	update := bson.M{"$set": report}

	err := r.mongoRepo.UpdateOne(ctx, reportsCollection, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update run report: %w", err)
	}

	return nil
}

func (r *ResultsRepository) GetLatestReportByRunID(ctx context.Context, runID string) (*models.RunReport, error) {
	filter := bson.M{"runId": runID}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var report models.RunReport
	err := r.mongoRepo.FindOne(ctx, reportsCollection, filter, opts).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find report: %w", err)
	}

	return &report, nil
}
