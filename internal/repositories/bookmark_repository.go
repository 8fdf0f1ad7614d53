package repositories

import (
	"context"

	"github.com/anonto42/storyhive/backend/internal/models"
	"gorm.io/gorm"
)

// PostgresBookmarkRepository implements BookmarkRepository for PostgreSQL
type PostgresBookmarkRepository struct {
	db *gorm.DB
}

// NewPostgresBookmarkRepository creates a new PostgresBookmarkRepository
func NewPostgresBookmarkRepository(db *gorm.DB) *PostgresBookmarkRepository {
	return &PostgresBookmarkRepository{db: db}
}

// CreateBookmark inserts the pair; the unique index reports duplicates as Conflict.
func (r *PostgresBookmarkRepository) CreateBookmark(ctx context.Context, bookmark *models.Bookmark) error {
	return translateGormError(r.db.WithContext(ctx).Create(bookmark).Error, "Bookmark")
}

func (r *PostgresBookmarkRepository) DeleteBookmark(ctx context.Context, userID, storyID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND story_id = ?", userID, storyID).Delete(&models.Bookmark{})
	if res.Error != nil {
		return false, translateGormError(res.Error, "Bookmark")
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresBookmarkRepository) IsBookmarked(ctx context.Context, userID, storyID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Bookmark{}).Where("user_id = ? AND story_id = ?", userID, storyID).Count(&count).Error
	return count > 0, translateGormError(err, "Bookmark")
}

func (r *PostgresBookmarkRepository) ListByUser(ctx context.Context, userID string) ([]models.Bookmark, error) {
	var bookmarks []models.Bookmark
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Find(&bookmarks).Error
	return bookmarks, translateGormError(err, "Bookmark")
}

func (r *PostgresBookmarkRepository) BookmarkedStoryIDs(ctx context.Context, userID string, storyIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(storyIDs) == 0 {
		return result, nil
	}
	var bookmarks []models.Bookmark
	err := r.db.WithContext(ctx).Where("user_id = ? AND story_id IN ?", userID, storyIDs).Find(&bookmarks).Error
	if err != nil {
		return nil, translateGormError(err, "Bookmark")
	}
	for _, b := range bookmarks {
		result[b.StoryID] = true
	}
	return result, nil
}

func (r *PostgresBookmarkRepository) DeleteByStory(ctx context.Context, storyID string) error {
	err := r.db.WithContext(ctx).Where("story_id = ?", storyID).Delete(&models.Bookmark{}).Error
	return translateGormError(err, "Bookmark")
}

func (r *PostgresBookmarkRepository) DeleteByUser(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Bookmark{}).Error
	return translateGormError(err, "Bookmark")
}
