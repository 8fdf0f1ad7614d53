package models

import "time"

// NotificationType is the closed set of engagement events a user can be notified about.
type NotificationType string

const (
	NotificationLikeStory  NotificationType = "like_story"
	NotificationFollow     NotificationType = "follow"
	NotificationComment    NotificationType = "comment"
	NotificationNewStory   NotificationType = "new_story"
	NotificationNewChapter NotificationType = "new_chapter"
)

// NeedsStory reports whether the type is story-scoped.
func (t NotificationType) NeedsStory() bool {
	switch t {
	case NotificationLikeStory, NotificationComment, NotificationNewStory, NotificationNewChapter:
		return true
	}
	return false
}

// NeedsChapter reports whether the type is chapter-scoped.
func (t NotificationType) NeedsChapter() bool {
	return t == NotificationNewChapter
}

// Valid reports whether t is a known type.
func (t NotificationType) Valid() bool {
	return t == NotificationFollow || t.NeedsStory()
}

// Notification represents a user notification (PostgreSQL)
type Notification struct {
	ID          uint             `json:"id" gorm:"primaryKey"`
	RecipientID string           `json:"recipient" gorm:"size:24;index"`
	SenderID    string           `json:"sender" gorm:"size:24;index"`
	Type        NotificationType `json:"type" gorm:"size:30;index"`
	StoryID     string           `json:"story,omitempty" gorm:"size:24"`
	ChapterID   string           `json:"chapter,omitempty" gorm:"size:24"`
	Message     string           `json:"message"`
	IsRead      bool             `json:"read" gorm:"default:false;index"`
	CreatedAt   time.Time        `json:"createdAt" gorm:"index"`
}
