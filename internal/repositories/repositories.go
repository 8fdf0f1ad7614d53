package repositories

import (
	"context"
	"time"

	"github.com/anonto42/storyhive/backend/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user document operations.
// The follow-edge methods are single conditional updates on one document and
// report whether the document changed.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	ListUserIDs(ctx context.Context) ([]string, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) error
	SetFirebaseUID(ctx context.Context, id, firebaseUID string) error
	AddFollowing(ctx context.Context, userID, targetID string) (bool, error)
	RemoveFollowing(ctx context.Context, userID, targetID string) (bool, error)
	AddFollower(ctx context.Context, userID, followerID string) (bool, error)
	RemoveFollower(ctx context.Context, userID, followerID string) (bool, error)
	PullFromAllEdges(ctx context.Context, userID string) error
	DeleteUser(ctx context.Context, id string) error
}

// ProfileUpdate carries the profile fields to overwrite; nil means unchanged.
type ProfileUpdate struct {
	Username       *string
	Email          *string
	Bio            *string
	ProfilePicture *string
}

// StoryRepository defines the interface for story document operations
type StoryRepository interface {
	CreateStory(ctx context.Context, story *models.Story) error
	GetStoryByID(ctx context.Context, id string) (*models.Story, error)
	ListPublished(ctx context.Context, category string) ([]models.Story, error)
	ListByAuthor(ctx context.Context, authorID string, includeDrafts bool) ([]models.Story, error)
	UpdateStory(ctx context.Context, id string, update StoryUpdate) (*models.Story, error)
	DeleteStory(ctx context.Context, id string) error
	AddLike(ctx context.Context, storyID, userID string) (*models.Story, bool, error)
	RemoveLike(ctx context.Context, storyID, userID string) (*models.Story, bool, error)
	PullLikesBy(ctx context.Context, userID string) error
	IncrementReads(ctx context.Context, id string) (int64, error)
}

// StoryUpdate carries the story fields to overwrite; nil means unchanged.
type StoryUpdate struct {
	Title       *string
	Description *string
	Category    *string
	Tags        []string
	CoverImage  *string
	Status      *models.StoryStatus
	IsPublished *bool
	UpdatedAt   time.Time
}

// ChapterRepository defines the interface for chapter document operations
type ChapterRepository interface {
	CreateChapters(ctx context.Context, chapters []*models.Chapter) error
	AppendChapter(ctx context.Context, chapter *models.Chapter) error
	GetChapterByID(ctx context.Context, id string) (*models.Chapter, error)
	ListByStory(ctx context.Context, storyID string) ([]models.Chapter, error)
	CountByStory(ctx context.Context, storyID string) (int64, error)
	UpdateChapter(ctx context.Context, id string, update ChapterUpdate) (*models.Chapter, error)
	DeleteChapter(ctx context.Context, id string) error
	DeleteByStory(ctx context.Context, storyID string) (int64, error)
}

// ChapterUpdate carries the chapter fields to overwrite; nil means unchanged.
type ChapterUpdate struct {
	Title     *string
	Content   *string
	Notes     *string
	UpdatedAt time.Time
}

// BookmarkRepository defines the interface for bookmark operations.
// CreateBookmark fails with a Conflict error when the pair already exists.
type BookmarkRepository interface {
	CreateBookmark(ctx context.Context, bookmark *models.Bookmark) error
	DeleteBookmark(ctx context.Context, userID, storyID string) (bool, error)
	IsBookmarked(ctx context.Context, userID, storyID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.Bookmark, error)
	BookmarkedStoryIDs(ctx context.Context, userID string, storyIDs []string) (map[string]bool, error)
	DeleteByStory(ctx context.Context, storyID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByRecipientID(ctx context.Context, recipientID string, page, limit int, unreadOnly bool) ([]models.Notification, int64, error)
	GetUnreadCount(ctx context.Context, recipientID string) (int64, error)
	MarkAsRead(ctx context.Context, recipientID string, notificationID uint) error
	MarkAllAsRead(ctx context.Context, recipientID string) error
	DeleteNotification(ctx context.Context, recipientID string, notificationID uint) error
	DeleteByUser(ctx context.Context, userID string) error
}

// CommentRepository defines the interface for comment operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByStory(ctx context.Context, storyID string) ([]models.Comment, error)
	DeleteComment(ctx context.Context, id uint) error
	DeleteByStory(ctx context.Context, storyID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

// TxRunner runs fn as one transactional unit. Repository calls made with the
// ctx passed to fn take part in the transaction.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles every repository of one backend.
type Store struct {
	Users         UserRepository
	Stories       StoryRepository
	Chapters      ChapterRepository
	Bookmarks     BookmarkRepository
	Notifications NotificationRepository
	Comments      CommentRepository
	Tx            TxRunner
}

// NewStore wires the document repositories on db and the relational ones on
// pg. With transactions set, multi-document writes run in Mongo sessions,
// which needs a replica set; otherwise they run sequentially.
func NewStore(client *mongo.Client, db *mongo.Database, pg *gorm.DB, transactions bool) *Store {
	var tx TxRunner = SequentialTxRunner{}
	if transactions {
		tx = NewMongoTxRunner(client)
	}
	return &Store{
		Users:         NewMongoUserRepository(db),
		Stories:       NewMongoStoryRepository(db),
		Chapters:      NewMongoChapterRepository(db),
		Bookmarks:     NewPostgresBookmarkRepository(pg),
		Notifications: NewPostgresNotificationRepository(pg),
		Comments:      NewPostgresCommentRepository(pg),
		Tx:            tx,
	}
}

// RelationalModels lists the records kept in PostgreSQL, for migrations.
func RelationalModels() []interface{} {
	return []interface{}{&models.Bookmark{}, &models.Notification{}, &models.Comment{}}
}
