package models

import "time"

// Comment is a reader comment on a story (PostgreSQL)
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	StoryID   string    `json:"storyId" gorm:"size:24;index"` // MongoDB ObjectID hex of the story
	UserID    string    `json:"userId" gorm:"size:24;index"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateCommentRequest defines the request body for commenting on a story
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}
