package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/storyhive/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStoryRepository implements StoryRepository for MongoDB
type MongoStoryRepository struct {
	collection *mongo.Collection
}

// NewMongoStoryRepository creates a new MongoStoryRepository
func NewMongoStoryRepository(db *mongo.Database) *MongoStoryRepository {
	return &MongoStoryRepository{collection: db.Collection("stories")}
}

func (r *MongoStoryRepository) CreateStory(ctx context.Context, story *models.Story) error {
	story.ID = primitive.NewObjectID()
	now := time.Now()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = now
	}
	story.UpdatedAt = now
	if story.Likes == nil {
		story.Likes = []primitive.ObjectID{}
	}
	_, err := r.collection.InsertOne(ctx, story)
	return translateMongoError(err, "Story")
}

func (r *MongoStoryRepository) GetStoryByID(ctx context.Context, id string) (*models.Story, error) {
	objID, err := parseObjectID(id, "Story")
	if err != nil {
		return nil, err
	}
	var story models.Story
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&story); err != nil {
		return nil, translateMongoError(err, "Story")
	}
	return &story, nil
}

func (r *MongoStoryRepository) find(ctx context.Context, filter bson.M) ([]models.Story, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, translateMongoError(err, "Story")
	}
	defer cursor.Close(ctx)

	stories := []models.Story{}
	if err = cursor.All(ctx, &stories); err != nil {
		return nil, translateMongoError(err, "Story")
	}
	return stories, nil
}

// ListPublished returns published stories, newest first, optionally for one category.
func (r *MongoStoryRepository) ListPublished(ctx context.Context, category string) ([]models.Story, error) {
	filter := bson.M{"is_published": true}
	if category != "" {
		filter["category"] = category
	}
	return r.find(ctx, filter)
}

func (r *MongoStoryRepository) ListByAuthor(ctx context.Context, authorID string, includeDrafts bool) ([]models.Story, error) {
	objID, err := parseObjectID(authorID, "User")
	if err != nil {
		return nil, err
	}
	filter := bson.M{"author": objID}
	if !includeDrafts {
		filter["is_published"] = true
	}
	return r.find(ctx, filter)
}

func (r *MongoStoryRepository) UpdateStory(ctx context.Context, id string, update StoryUpdate) (*models.Story, error) {
	objID, err := parseObjectID(id, "Story")
	if err != nil {
		return nil, err
	}
	set := bson.M{"updated_at": update.UpdatedAt}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Category != nil {
		set["category"] = *update.Category
	}
	if update.Tags != nil {
		set["tags"] = update.Tags
	}
	if update.CoverImage != nil {
		set["cover_image"] = *update.CoverImage
	}
	if update.Status != nil {
		set["status"] = *update.Status
	}
	if update.IsPublished != nil {
		set["is_published"] = *update.IsPublished
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var story models.Story
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, bson.M{"$set": set}, opts).Decode(&story); err != nil {
		return nil, translateMongoError(err, "Story")
	}
	return &story, nil
}

func (r *MongoStoryRepository) DeleteStory(ctx context.Context, id string) error {
	objID, err := parseObjectID(id, "Story")
	if err != nil {
		return err
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return translateMongoError(err, "Story")
	}
	if res.DeletedCount == 0 {
		return translateMongoError(mongo.ErrNoDocuments, "Story")
	}
	return nil
}

// AddLike adds userID to the story's likes when absent. It returns the story
// after the call and whether this call added the like.
func (r *MongoStoryRepository) AddLike(ctx context.Context, storyID, userID string) (*models.Story, bool, error) {
	return r.mutateLikes(ctx, storyID, userID, true)
}

// RemoveLike removes userID from the story's likes when present.
func (r *MongoStoryRepository) RemoveLike(ctx context.Context, storyID, userID string) (*models.Story, bool, error) {
	return r.mutateLikes(ctx, storyID, userID, false)
}

func (r *MongoStoryRepository) mutateLikes(ctx context.Context, storyID, userID string, add bool) (*models.Story, bool, error) {
	objID, err := parseObjectID(storyID, "Story")
	if err != nil {
		return nil, false, err
	}
	userObjID, err := parseObjectID(userID, "User")
	if err != nil {
		return nil, false, err
	}

	var filter, update bson.M
	if add {
		filter = bson.M{"_id": objID, "likes": bson.M{"$ne": userObjID}}
		update = bson.M{"$addToSet": bson.M{"likes": userObjID}}
	} else {
		filter = bson.M{"_id": objID, "likes": userObjID}
		update = bson.M{"$pull": bson.M{"likes": userObjID}}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var story models.Story
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&story)
	if err == nil {
		return &story, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, translateMongoError(err, "Story")
	}

	// The guard did not match: either the story is gone or membership was
	// already in the requested state.
	current, err := r.GetStoryByID(ctx, storyID)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (r *MongoStoryRepository) PullLikesBy(ctx context.Context, userID string) error {
	objID, err := parseObjectID(userID, "User")
	if err != nil {
		return err
	}
	_, err = r.collection.UpdateMany(ctx, bson.M{"likes": objID}, bson.M{"$pull": bson.M{"likes": objID}})
	return translateMongoError(err, "Story")
}

// IncrementReads bumps the read counter atomically and returns the new value.
func (r *MongoStoryRepository) IncrementReads(ctx context.Context, id string) (int64, error) {
	objID, err := parseObjectID(id, "Story")
	if err != nil {
		return 0, err
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"reads": 1})
	var doc struct {
		Reads int64 `bson:"reads"`
	}
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, bson.M{"$inc": bson.M{"reads": 1}}, opts).Decode(&doc)
	if err != nil {
		return 0, translateMongoError(err, "Story")
	}
	return doc.Reads, nil
}
