package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/storyhive/backend/internal/apperror"
	"github.com/anonto42/storyhive/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// appendAttempts bounds retries when two writers race for the same chapter number.
const appendAttempts = 3

// MongoChapterRepository implements ChapterRepository for MongoDB
type MongoChapterRepository struct {
	collection *mongo.Collection
}

// NewMongoChapterRepository creates a new MongoChapterRepository
func NewMongoChapterRepository(db *mongo.Database) *MongoChapterRepository {
	return &MongoChapterRepository{collection: db.Collection("chapters")}
}

func stampChapter(chapter *models.Chapter) {
	chapter.ID = primitive.NewObjectID()
	now := time.Now()
	chapter.CreatedAt = now
	chapter.UpdatedAt = now
}

func (r *MongoChapterRepository) CreateChapters(ctx context.Context, chapters []*models.Chapter) error {
	if len(chapters) == 0 {
		return nil
	}
	docs := make([]interface{}, len(chapters))
	for i, chapter := range chapters {
		stampChapter(chapter)
		docs[i] = chapter
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return translateMongoError(err, "Chapter")
}

// lastNumber returns the highest chapter number in a story, 0 when it has none.
func (r *MongoChapterRepository) lastNumber(ctx context.Context, storyID primitive.ObjectID) (int, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "chapter_number", Value: -1}}).
		SetProjection(bson.M{"chapter_number": 1})
	var last models.Chapter
	err := r.collection.FindOne(ctx, bson.M{"story": storyID}, opts).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, translateMongoError(err, "Chapter")
	}
	return last.ChapterNumber, nil
}

// AppendChapter numbers the chapter after the story's highest chapter number
// and inserts it. Numbers left by deleted chapters are not reused. The unique
// (story, chapter_number) index turns a lost race into a retry.
func (r *MongoChapterRepository) AppendChapter(ctx context.Context, chapter *models.Chapter) error {
	untitled := chapter.Title == ""
	for attempt := 0; attempt < appendAttempts; attempt++ {
		if untitled {
			chapter.Title = ""
		}
		last, err := r.lastNumber(ctx, chapter.Story)
		if err != nil {
			return err
		}
		chapter.AssignNumber(last + 1)
		stampChapter(chapter)
		_, err = r.collection.InsertOne(ctx, chapter)
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return translateMongoError(err, "Chapter")
		}
	}
	return apperror.Conflict("chapter numbering is contended, retry the request")
}

func (r *MongoChapterRepository) GetChapterByID(ctx context.Context, id string) (*models.Chapter, error) {
	objID, err := parseObjectID(id, "Chapter")
	if err != nil {
		return nil, err
	}
	var chapter models.Chapter
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&chapter); err != nil {
		return nil, translateMongoError(err, "Chapter")
	}
	return &chapter, nil
}

func (r *MongoChapterRepository) ListByStory(ctx context.Context, storyID string) ([]models.Chapter, error) {
	objID, err := parseObjectID(storyID, "Story")
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "chapter_number", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"story": objID}, opts)
	if err != nil {
		return nil, translateMongoError(err, "Chapter")
	}
	defer cursor.Close(ctx)

	chapters := []models.Chapter{}
	if err = cursor.All(ctx, &chapters); err != nil {
		return nil, translateMongoError(err, "Chapter")
	}
	return chapters, nil
}

func (r *MongoChapterRepository) CountByStory(ctx context.Context, storyID string) (int64, error) {
	objID, err := parseObjectID(storyID, "Story")
	if err != nil {
		return 0, err
	}
	count, err := r.collection.CountDocuments(ctx, bson.M{"story": objID})
	return count, translateMongoError(err, "Chapter")
}

func (r *MongoChapterRepository) UpdateChapter(ctx context.Context, id string, update ChapterUpdate) (*models.Chapter, error) {
	objID, err := parseObjectID(id, "Chapter")
	if err != nil {
		return nil, err
	}
	set := bson.M{"updated_at": update.UpdatedAt}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Content != nil {
		set["content"] = *update.Content
	}
	if update.Notes != nil {
		set["notes"] = *update.Notes
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var chapter models.Chapter
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, bson.M{"$set": set}, opts).Decode(&chapter); err != nil {
		return nil, translateMongoError(err, "Chapter")
	}
	return &chapter, nil
}

func (r *MongoChapterRepository) DeleteChapter(ctx context.Context, id string) error {
	objID, err := parseObjectID(id, "Chapter")
	if err != nil {
		return err
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return translateMongoError(err, "Chapter")
	}
	if res.DeletedCount == 0 {
		return translateMongoError(mongo.ErrNoDocuments, "Chapter")
	}
	return nil
}

// DeleteByStory removes every chapter of a story and reports how many went.
func (r *MongoChapterRepository) DeleteByStory(ctx context.Context, storyID string) (int64, error) {
	objID, err := parseObjectID(storyID, "Story")
	if err != nil {
		return 0, err
	}
	res, err := r.collection.DeleteMany(ctx, bson.M{"story": objID})
	if err != nil {
		return 0, translateMongoError(err, "Chapter")
	}
	return res.DeletedCount, nil
}
