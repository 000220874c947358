package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/RishiKendai/aegis-tiling/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const submissionsCollection = "tokenized_submissions"

type SubmissionsRepository struct {
	mongoRepo *MongoRepository
}

func NewSubmissionsRepository(mongoRepo *MongoRepository) *SubmissionsRepository {
	return &SubmissionsRepository{
		mongoRepo: mongoRepo,
	}
}

// UpsertArtifact stores the tokenized submission, replacing an earlier
// version with the same run and submission id.
func (r *SubmissionsRepository) UpsertArtifact(ctx context.Context, artifact *models.Artifact) error {
	artifact.CreatedAt = time.Now()
	filter := bson.M{"runId": artifact.RunID, "submissionId": artifact.SubmissionID}
	update := bson.M{"$set": artifact}

	err := r.mongoRepo.UpdateOne(ctx, submissionsCollection, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert artifact: %w", err)
	}

	return nil
}

// GetArtifactsByRunID returns all artifacts of a run, basecode included, ordered by submission id
func (r *SubmissionsRepository) GetArtifactsByRunID(ctx context.Context, runID string) ([]*models.Artifact, error) {
	filter := bson.M{"runId": runID}
	opts := options.Find().SetSort(bson.D{{Key: "submissionId", Value: 1}})

	cursor, err := r.mongoRepo.FindMany(ctx, submissionsCollection, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find artifacts: %w", err)
	}
	defer cursor.Close(ctx)

	var artifacts []*models.Artifact
	if err := cursor.All(ctx, &artifacts); err != nil {
		return nil, fmt.Errorf("failed to decode artifacts: %w", err)
	}

	return artifacts, nil
}

func (r *SubmissionsRepository) CountArtifactsByRunID(ctx context.Context, runID string) (int64, error) {
	filter := bson.M{"runId": runID}

	count, err := r.mongoRepo.CountDocuments(ctx, submissionsCollection, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count artifacts: %w", err)
	}

	return count, nil
}
