package models

import "time"

// Bookmark is a private (user, story) save stored in PostgreSQL. The unique
// index makes at most one row per pair.
type Bookmark struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"userId" gorm:"size:24;index;uniqueIndex:idx_user_story_bookmark"`
	StoryID   string    `json:"storyId" gorm:"size:24;index;uniqueIndex:idx_user_story_bookmark"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}
