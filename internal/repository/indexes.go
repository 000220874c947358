package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the lookup indexes the repositories query by
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		submissionsCollection: {
			{
				Keys:    bson.D{{Key: "runId", Value: 1}, {Key: "submissionId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		comparisonsCollection: {
			{Keys: bson.D{{Key: "runId", Value: 1}, {Key: "similarity", Value: -1}}},
		},
		reportsCollection: {
			{Keys: bson.D{{Key: "runId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for collection, models := range indexes {
		names, err := r.GetCollection(collection).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
		log.Debug().Str("collection", collection).Strs("indexes", names).Msg("Indexes ensured")
	}

	return nil
}
