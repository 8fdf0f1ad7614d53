package repositories

import (
	"context"

	"github.com/anonto42/storyhive/backend/internal/models"
	"gorm.io/gorm"
)

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

func (r *PostgresCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return translateGormError(r.db.WithContext(ctx).Create(comment).Error, "Comment")
}

func (r *PostgresCommentRepository) GetCommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, translateGormError(err, "Comment")
	}
	return &comment, nil
}

// ListByStory returns a story's comments, oldest first
func (r *PostgresCommentRepository) ListByStory(ctx context.Context, storyID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).Where("story_id = ?", storyID).Order("created_at ASC").Order("id ASC").Find(&comments).Error
	return comments, translateGormError(err, "Comment")
}

func (r *PostgresCommentRepository) DeleteComment(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return translateGormError(res.Error, "Comment")
	}
	if res.RowsAffected == 0 {
		return translateGormError(gorm.ErrRecordNotFound, "Comment")
	}
	return nil
}

func (r *PostgresCommentRepository) DeleteByStory(ctx context.Context, storyID string) error {
	return translateGormError(r.db.WithContext(ctx).Where("story_id = ?", storyID).Delete(&models.Comment{}).Error, "Comment")
}

func (r *PostgresCommentRepository) DeleteByUser(ctx context.Context, userID string) error {
	return translateGormError(r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Comment{}).Error, "Comment")
}
