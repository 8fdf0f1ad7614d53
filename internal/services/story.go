package services

import (
	"context"
	"strings"
	"time"

	"github.com/anonto42/storyhive/backend/internal/apperror"
	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/anonto42/storyhive/backend/internal/realtime"
	"github.com/anonto42/storyhive/backend/internal/repositories"
	"github.com/sirupsen/logrus"
)

const (
	defaultTargetAudience = "General"
	defaultLanguage       = "English"
)

// StoryService manages stories and their chapters.
type StoryService struct {
	store     *repositories.Store
	notifier  *Notifier
	publisher realtime.Publisher
	log       logrus.FieldLogger
}

func NewStoryService(store *repositories.Store, notifier *Notifier, publisher realtime.Publisher, log logrus.FieldLogger) *StoryService {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &StoryService{store: store, notifier: notifier, publisher: publisher, log: log}
}

// CreateStory stores a story with its chapters numbered 1..n. Publishing it
// broadcasts on the feed topic and notifies the author's followers.
func (s *StoryService) CreateStory(ctx context.Context, actorID string, req models.CreateStoryRequest) (*models.CreatedStory, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperror.InvalidOperation("Title is required")
	}
	if len(req.Chapters) == 0 {
		return nil, apperror.InvalidOperation("At least one chapter is required")
	}
	for i, input := range req.Chapters {
		if strings.TrimSpace(input.Content) == "" {
			return nil, apperror.InvalidOperation("Chapter %d has no content", i+1)
		}
	}

	author, err := s.store.Users.GetUserByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	story := &models.Story{
		Title:          title,
		Description:    strings.TrimSpace(req.Description),
		CoverImage:     req.CoverImage,
		Author:         author.ID,
		Tags:           req.Tags,
		Category:       req.Category,
		TargetAudience: req.TargetAudience,
		Language:       req.Language,
		Status:         req.Status,
		IsPublished:    true,
	}
	if story.Tags == nil {
		story.Tags = []string{}
	}
	if story.TargetAudience == "" {
		story.TargetAudience = defaultTargetAudience
	}
	if story.Language == "" {
		story.Language = defaultLanguage
	}
	if story.Status == "" {
		story.Status = models.StoryStatusOngoing
	}
	if req.IsPublished != nil {
		story.IsPublished = *req.IsPublished
	}

	chapters := make([]*models.Chapter, len(req.Chapters))
	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Stories.CreateStory(ctx, story); err != nil {
			return err
		}
		for i, input := range req.Chapters {
			chapter := &models.Chapter{
				Story:   story.ID,
				Author:  author.ID,
				Title:   strings.TrimSpace(input.Title),
				Content: input.Content,
				Notes:   input.Notes,
			}
			chapter.AssignNumber(i + 1)
			chapters[i] = chapter
		}
		return s.store.Chapters.CreateChapters(ctx, chapters)
	})
	if err != nil {
		return nil, err
	}

	view := models.StoryView{Story: *story, Author: author.ToSummary()}
	created := &models.CreatedStory{Story: view, Chapters: make([]models.Chapter, len(chapters))}
	for i, chapter := range chapters {
		created.Chapters[i] = *chapter
	}

	if story.IsPublished {
		s.broadcast(ctx, realtime.EventNewStory, view)
		s.notifier.NotifyFollowers(ctx, actorID, models.NotificationNewStory, NotifyTarget{StoryID: story.ID.Hex()})
	}
	return created, nil
}

// GetStory returns a story with its author card and counts the read.
func (s *StoryService) GetStory(ctx context.Context, storyID string) (*models.StoryView, error) {
	story, err := s.store.Stories.GetStoryByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if reads, err := s.store.Stories.IncrementReads(ctx, storyID); err != nil {
		s.log.WithError(err).WithField("story", storyID).Warn("read not counted")
	} else {
		story.Reads = reads
	}
	view := storyViews(ctx, s.store.Users, []models.Story{*story}, s.log)[0]
	return &view, nil
}

// ListStories returns published stories, newest first.
func (s *StoryService) ListStories(ctx context.Context, category string) ([]models.StoryView, error) {
	stories, err := s.store.Stories.ListPublished(ctx, category)
	if err != nil {
		return nil, err
	}
	return storyViews(ctx, s.store.Users, stories, s.log), nil
}

// ListStoriesByAuthor returns authorID's stories. Drafts are included only
// when the viewer is the author.
func (s *StoryService) ListStoriesByAuthor(ctx context.Context, viewerID, authorID string) ([]models.StoryView, error) {
	stories, err := s.store.Stories.ListByAuthor(ctx, authorID, viewerID == authorID)
	if err != nil {
		return nil, err
	}
	return storyViews(ctx, s.store.Users, stories, s.log), nil
}

func (s *StoryService) UpdateStory(ctx context.Context, actorID, storyID string, req models.UpdateStoryRequest) (*models.StoryView, error) {
	if _, err := s.ownedStory(ctx, actorID, storyID); err != nil {
		return nil, err
	}

	update := repositories.StoryUpdate{
		Title:       nonEmpty(strings.TrimSpace(req.Title)),
		Description: nonEmpty(req.Description),
		Category:    nonEmpty(req.Category),
		Tags:        req.Tags,
		CoverImage:  nonEmpty(req.CoverImage),
		IsPublished: req.IsPublished,
		UpdatedAt:   time.Now(),
	}
	if req.Status != "" {
		status := req.Status
		update.Status = &status
	}

	story, err := s.store.Stories.UpdateStory(ctx, storyID, update)
	if err != nil {
		return nil, err
	}
	view := storyViews(ctx, s.store.Users, []models.Story{*story}, s.log)[0]
	return &view, nil
}

// DeleteStory removes the story and all of its chapters in one transaction.
// Bookmarks and comments on the story are cleaned up afterwards.
func (s *StoryService) DeleteStory(ctx context.Context, actorID, storyID string) error {
	if _, err := s.ownedStory(ctx, actorID, storyID); err != nil {
		return err
	}

	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.store.Chapters.DeleteByStory(ctx, storyID); err != nil {
			return err
		}
		return s.store.Stories.DeleteStory(ctx, storyID)
	})
	if err != nil {
		return err
	}

	if err := s.store.Bookmarks.DeleteByStory(ctx, storyID); err != nil {
		s.log.WithError(err).WithField("story", storyID).Warn("stale bookmarks left behind")
	}
	if err := s.store.Comments.DeleteByStory(ctx, storyID); err != nil {
		s.log.WithError(err).WithField("story", storyID).Warn("stale comments left behind")
	}
	return nil
}

// AddChapter appends a chapter after the story's last one and notifies followers when
// the story is published.
func (s *StoryService) AddChapter(ctx context.Context, actorID, storyID string, input models.ChapterInput) (*models.Chapter, error) {
	story, err := s.ownedStory(ctx, actorID, storyID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, apperror.InvalidOperation("Chapter content is required")
	}

	chapter := &models.Chapter{
		Story:   story.ID,
		Author:  story.Author,
		Title:   strings.TrimSpace(input.Title),
		Content: input.Content,
		Notes:   input.Notes,
	}
	if err := s.store.Chapters.AppendChapter(ctx, chapter); err != nil {
		return nil, err
	}

	if story.IsPublished {
		s.broadcast(ctx, realtime.EventNewChapter, chapter)
		s.notifier.NotifyFollowers(ctx, actorID, models.NotificationNewChapter, NotifyTarget{
			StoryID:   storyID,
			ChapterID: chapter.ID.Hex(),
		})
	}
	return chapter, nil
}

// ListChapters returns a story's chapters in chapter order.
func (s *StoryService) ListChapters(ctx context.Context, storyID string) ([]models.Chapter, error) {
	if _, err := s.store.Stories.GetStoryByID(ctx, storyID); err != nil {
		return nil, err
	}
	return s.store.Chapters.ListByStory(ctx, storyID)
}

func (s *StoryService) GetChapter(ctx context.Context, chapterID string) (*models.Chapter, error) {
	return s.store.Chapters.GetChapterByID(ctx, chapterID)
}

func (s *StoryService) UpdateChapter(ctx context.Context, actorID, chapterID string, req models.UpdateChapterRequest) (*models.Chapter, error) {
	chapter, err := s.store.Chapters.GetChapterByID(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedStory(ctx, actorID, chapter.Story.Hex()); err != nil {
		return nil, err
	}
	return s.store.Chapters.UpdateChapter(ctx, chapterID, repositories.ChapterUpdate{
		Title:     nonEmpty(strings.TrimSpace(req.Title)),
		Content:   nonEmpty(req.Content),
		Notes:     nonEmpty(req.Notes),
		UpdatedAt: time.Now(),
	})
}

func (s *StoryService) DeleteChapter(ctx context.Context, actorID, chapterID string) error {
	chapter, err := s.store.Chapters.GetChapterByID(ctx, chapterID)
	if err != nil {
		return err
	}
	if _, err := s.ownedStory(ctx, actorID, chapter.Story.Hex()); err != nil {
		return err
	}
	return s.store.Chapters.DeleteChapter(ctx, chapterID)
}

// ListBookmarks returns the published stories actorID bookmarked, most recent
// bookmark first. Bookmarks of deleted or unpublished stories are skipped.
func (s *StoryService) ListBookmarks(ctx context.Context, actorID string) ([]models.StoryView, error) {
	bookmarks, err := s.store.Bookmarks.ListByUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	stories := make([]models.Story, 0, len(bookmarks))
	for _, bookmark := range bookmarks {
		story, err := s.store.Stories.GetStoryByID(ctx, bookmark.StoryID)
		if apperror.Is(err, apperror.KindNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if story.IsPublished {
			stories = append(stories, *story)
		}
	}
	return storyViews(ctx, s.store.Users, stories, s.log), nil
}

func (s *StoryService) ownedStory(ctx context.Context, actorID, storyID string) (*models.Story, error) {
	story, err := s.store.Stories.GetStoryByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.Author.Hex() != actorID {
		return nil, apperror.Unauthorized("Not authorized")
	}
	return story, nil
}

func (s *StoryService) broadcast(ctx context.Context, name string, data interface{}) {
	if err := s.publisher.Publish(ctx, realtime.FeedTopic, realtime.Event{Name: name, Data: data}); err != nil {
		s.log.WithError(err).WithField("event", name).Warn("feed broadcast failed")
	}
}

func nonEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
