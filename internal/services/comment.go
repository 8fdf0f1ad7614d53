package services

import (
	"context"
	"strings"

	"github.com/anonto42/storyhive/backend/internal/apperror"
	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/anonto42/storyhive/backend/internal/repositories"
	"github.com/sirupsen/logrus"
)

type CommentService struct {
	store    *repositories.Store
	notifier *Notifier
	log      logrus.FieldLogger
}

func NewCommentService(store *repositories.Store, notifier *Notifier, log logrus.FieldLogger) *CommentService {
	return &CommentService{store: store, notifier: notifier, log: log}
}

// AddComment stores a comment and notifies the story author.
func (s *CommentService) AddComment(ctx context.Context, actorID, storyID, content string) (*models.CommentView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.InvalidOperation("Comment content is required")
	}
	story, err := s.store.Stories.GetStoryByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	author, err := s.store.Users.GetUserByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{StoryID: storyID, UserID: actorID, Content: content}
	if err := s.store.Comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	if _, err := s.notifier.Notify(ctx, story.Author.Hex(), actorID, models.NotificationComment, NotifyTarget{StoryID: storyID}); err != nil {
		s.log.WithError(err).WithField("story", storyID).Error("comment notification not recorded")
	}
	return &models.CommentView{Comment: *comment, Author: author.ToSummary()}, nil
}

// ListComments returns a story's comments, oldest first.
func (s *CommentService) ListComments(ctx context.Context, storyID string) ([]models.CommentView, error) {
	if _, err := s.store.Stories.GetStoryByID(ctx, storyID); err != nil {
		return nil, err
	}
	comments, err := s.store.Comments.ListByStory(ctx, storyID)
	if err != nil {
		return nil, err
	}

	userIDs := make([]string, 0, len(comments))
	for _, comment := range comments {
		userIDs = append(userIDs, comment.UserID)
	}
	authors := summariesByID(ctx, s.store.Users, userIDs, s.log)

	views := make([]models.CommentView, 0, len(comments))
	for _, comment := range comments {
		views = append(views, models.CommentView{Comment: comment, Author: authors.get(comment.UserID)})
	}
	return views, nil
}

// DeleteComment is allowed to the comment's author and the story's author.
func (s *CommentService) DeleteComment(ctx context.Context, actorID string, commentID uint) error {
	comment, err := s.store.Comments.GetCommentByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != actorID {
		story, err := s.store.Stories.GetStoryByID(ctx, comment.StoryID)
		if err != nil && !apperror.Is(err, apperror.KindNotFound) {
			return err
		}
		if story == nil || story.Author.Hex() != actorID {
			return apperror.Unauthorized("Not authorized")
		}
	}
	return s.store.Comments.DeleteComment(ctx, commentID)
}
