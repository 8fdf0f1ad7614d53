package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StoryStatus is the writing status an author shows on a story.
type StoryStatus string

const (
	StoryStatusOngoing   StoryStatus = "Ongoing"
	StoryStatusCompleted StoryStatus = "Completed"
	StoryStatusHiatus    StoryStatus = "Hiatus"
)

// Story is an authored work stored in MongoDB. Likes holds unique user ids.
type Story struct {
	ID             primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Title          string               `json:"title" bson:"title"`
	Description    string               `json:"description" bson:"description"`
	CoverImage     string               `json:"coverImage" bson:"cover_image"`
	Author         primitive.ObjectID   `json:"author" bson:"author"`
	Tags           []string             `json:"tags" bson:"tags"`
	Category       string               `json:"category" bson:"category"`
	TargetAudience string               `json:"targetAudience" bson:"target_audience"`
	Language       string               `json:"language" bson:"language"`
	Status         StoryStatus          `json:"status" bson:"status"`
	IsPublished    bool                 `json:"isPublished" bson:"is_published"`
	Likes          []primitive.ObjectID `json:"likes" bson:"likes"`
	Reads          int64                `json:"reads" bson:"reads"`
	CreatedAt      time.Time            `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time            `json:"updatedAt" bson:"updated_at"`
}

// IsLikedBy reports whether userID is in s.Likes.
func (s *Story) IsLikedBy(userID primitive.ObjectID) bool {
	return containsID(s.Likes, userID)
}

// Chapter belongs to exactly one story; ChapterNumber orders it within the story.
type Chapter struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Story         primitive.ObjectID `json:"story" bson:"story"`
	Author        primitive.ObjectID `json:"author" bson:"author"`
	Title         string             `json:"title" bson:"title"`
	Content       string             `json:"content" bson:"content"`
	Notes         string             `json:"notes" bson:"notes"`
	ChapterNumber int                `json:"chapterNumber" bson:"chapter_number"`
	CreatedAt     time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updated_at"`
}

// AssignNumber places the chapter at number, titling it "Chapter n" when untitled.
func (c *Chapter) AssignNumber(number int) {
	c.ChapterNumber = number
	if c.Title == "" {
		c.Title = fmt.Sprintf("Chapter %d", number)
	}
}

// ChapterInput is one chapter inside a story creation request
type ChapterInput struct {
	Title   string `json:"title" validate:"omitempty,max=200"`
	Content string `json:"content"`
	Notes   string `json:"notes" validate:"omitempty,max=2000"`
}

// CreateStoryRequest defines the request body for creating a story with its chapters
type CreateStoryRequest struct {
	Title          string         `json:"title" validate:"max=200"`
	Description    string         `json:"description" validate:"max=5000"`
	Category       string         `json:"category" validate:"max=50"`
	Tags           []string       `json:"tags" validate:"omitempty,max=20,dive,max=40"`
	CoverImage     string         `json:"coverImage" validate:"omitempty,max=2048"`
	TargetAudience string         `json:"targetAudience" validate:"omitempty,max=50"`
	Language       string         `json:"language" validate:"omitempty,max=50"`
	Status         StoryStatus    `json:"status" validate:"omitempty,oneof=Ongoing Completed Hiatus"`
	IsPublished    *bool          `json:"isPublished,omitempty"`
	Chapters       []ChapterInput `json:"chapters" validate:"dive"`
}

// UpdateStoryRequest defines the request body for updating story metadata.
// Empty fields keep their current value.
type UpdateStoryRequest struct {
	Title       string      `json:"title,omitempty" validate:"omitempty,max=200"`
	Description string      `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category    string      `json:"category,omitempty" validate:"omitempty,max=50"`
	Tags        []string    `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=40"`
	CoverImage  string      `json:"coverImage,omitempty" validate:"omitempty,max=2048"`
	Status      StoryStatus `json:"status,omitempty" validate:"omitempty,oneof=Ongoing Completed Hiatus"`
	IsPublished *bool       `json:"isPublished,omitempty"`
}

// UpdateChapterRequest defines the request body for editing a chapter
type UpdateChapterRequest struct {
	Title   string `json:"title,omitempty" validate:"omitempty,max=200"`
	Content string `json:"content,omitempty"`
	Notes   string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}
