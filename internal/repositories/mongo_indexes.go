package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoIndexes lists the indexes per collection. Email is unique only among
// users that have one; federated accounts may sign in without an email.
func mongoIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"email": bson.M{"$gt": ""}}),
			},
			{Keys: bson.D{{Key: "firebase_uid", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		},
		"stories": {
			{Keys: bson.D{{Key: "is_published", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "author", Value: 1}}},
		},
		"chapters": {
			{Keys: bson.D{{Key: "story", Value: 1}, {Key: "chapter_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
}

// EnsureMongoIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	for collection, models := range mongoIndexes() {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", collection, err)
		}
	}
	return nil
}
