package catalog

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// EnsureIndexes creates idempotent indexes on the securities, days, and
// trades collections.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	type idx struct {
		collection string
		model      mongo.IndexModel
	}

	indexes := []idx{
		{
			collection: "securities",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "locate_code", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: "securities",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "symbol", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: "days",
			model: mongo.IndexModel{
				Keys: bson.D{
					{Key: "run_id", Value: 1},
					{Key: "symbol", Value: 1},
					{Key: "date", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: "trades",
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "match_number", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		{
			collection: "trades",
			model: mongo.IndexModel{
				Keys: bson.D{
					{Key: "symbol", Value: 1},
					{Key: "executed_at", Value: -1},
				},
			},
		},
	}

	for _, i := range indexes {
		if _, err := db.Collection(i.collection).Indexes().CreateOne(ctx, i.model); err != nil {
			return fmt.Errorf("catalog: create index on %s: %w", i.collection, err)
		}
	}

	log.Println("catalog: MongoDB indexes ensured")
	return nil
}
