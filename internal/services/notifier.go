package services

import (
	"context"
	"fmt"

	"github.com/anonto42/storyhive/backend/internal/apperror"
	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/anonto42/storyhive/backend/internal/realtime"
	"github.com/anonto42/storyhive/backend/internal/repositories"
	"github.com/sirupsen/logrus"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

// NotifyTarget is the story/chapter a notification refers to.
type NotifyTarget struct {
	StoryID   string
	ChapterID string
}

// Notifier records engagement notifications and pushes them to recipients.
type Notifier struct {
	store     *repositories.Store
	publisher realtime.Publisher
	log       logrus.FieldLogger
}

func NewNotifier(store *repositories.Store, publisher realtime.Publisher, log logrus.FieldLogger) *Notifier {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &Notifier{store: store, publisher: publisher, log: log}
}

// Notify writes a notification for recipient and pushes it on the recipient's
// topic. It returns nil, nil when sender and recipient are the same user.
// The push is best-effort and never fails the call.
func (n *Notifier) Notify(ctx context.Context, recipientID, senderID string, typ models.NotificationType, target NotifyTarget) (*models.Notification, error) {
	if recipientID == senderID {
		return nil, nil
	}
	if !typ.Valid() {
		return nil, apperror.InvalidOperation("unknown notification type %q", typ)
	}
	if typ.NeedsStory() && target.StoryID == "" {
		return nil, apperror.InvalidOperation("%s notification requires a story", typ)
	}
	if typ.NeedsChapter() && target.ChapterID == "" {
		return nil, apperror.InvalidOperation("%s notification requires a chapter", typ)
	}

	sender, err := n.store.Users.GetUserByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	recipient, err := n.store.Users.GetUserByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	message, err := n.message(ctx, typ, sender, target)
	if err != nil {
		return nil, err
	}

	notification := &models.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        typ,
		StoryID:     target.StoryID,
		ChapterID:   target.ChapterID,
		Message:     message,
	}
	if err := n.store.Notifications.CreateNotification(ctx, notification); err != nil {
		return nil, err
	}

	if recipient.Preferences.PushNotifications {
		n.push(ctx, recipientID, models.NotificationView{Notification: *notification, Sender: sender.ToSummary()})
	}
	return notification, nil
}

// NotifyFollowers fans a story-scoped notification out to every follower of
// authorID and returns how many were written. Individual failures are logged.
func (n *Notifier) NotifyFollowers(ctx context.Context, authorID string, typ models.NotificationType, target NotifyTarget) int {
	author, err := n.store.Users.GetUserByID(ctx, authorID)
	if err != nil {
		n.log.WithError(err).WithField("author", authorID).Warn("follower fan-out skipped")
		return 0
	}
	sent := 0
	for _, followerID := range author.Followers {
		_, err := n.Notify(ctx, followerID.Hex(), authorID, typ, target)
		if err != nil {
			n.log.WithError(err).WithFields(logrus.Fields{
				"recipient": followerID.Hex(),
				"type":      typ,
			}).Warn("follower notification failed")
			continue
		}
		sent++
	}
	return sent
}

func (n *Notifier) push(ctx context.Context, recipientID string, view models.NotificationView) {
	topic := realtime.UserTopic(recipientID)
	event := realtime.Event{Name: realtime.EventNewNotification, Data: view}
	if err := n.publisher.Publish(ctx, topic, event); err != nil {
		n.log.WithError(err).WithFields(logrus.Fields{
			"recipient": recipientID,
			"topic":     topic,
		}).Warn("notification push failed")
	}
}

func (n *Notifier) message(ctx context.Context, typ models.NotificationType, sender *models.User, target NotifyTarget) (string, error) {
	if typ == models.NotificationFollow {
		return fmt.Sprintf("%s started following you", sender.Username), nil
	}
	story, err := n.store.Stories.GetStoryByID(ctx, target.StoryID)
	if err != nil {
		return "", err
	}
	switch typ {
	case models.NotificationLikeStory:
		return fmt.Sprintf("Someone liked your story %q", story.Title), nil
	case models.NotificationComment:
		return fmt.Sprintf("%s commented on your story %q", sender.Username, story.Title), nil
	case models.NotificationNewStory:
		return fmt.Sprintf("%s published a new story %q", sender.Username, story.Title), nil
	}
	chapter, err := n.store.Chapters.GetChapterByID(ctx, target.ChapterID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s added chapter %d %q to %q", sender.Username, chapter.ChapterNumber, chapter.Title, story.Title), nil
}

// List returns one page of recipientID's notifications, newest first.
func (n *Notifier) List(ctx context.Context, recipientID string, page, limit int, unreadOnly bool) (*models.NotificationList, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	notifications, total, err := n.store.Notifications.GetByRecipientID(ctx, recipientID, page, limit, unreadOnly)
	if err != nil {
		return nil, err
	}
	unread, err := n.store.Notifications.GetUnreadCount(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	senderIDs := make([]string, 0, len(notifications))
	for _, notification := range notifications {
		senderIDs = append(senderIDs, notification.SenderID)
	}
	senders := summariesByID(ctx, n.store.Users, senderIDs, n.log)

	views := make([]models.NotificationView, 0, len(notifications))
	for _, notification := range notifications {
		views = append(views, models.NotificationView{
			Notification: notification,
			Sender:       senders.get(notification.SenderID),
		})
	}
	return &models.NotificationList{
		Notifications: views,
		Pagination: models.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + int64(limit) - 1) / int64(limit),
		},
		UnreadCount: unread,
	}, nil
}

func (n *Notifier) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return n.store.Notifications.GetUnreadCount(ctx, recipientID)
}

// MarkRead marks one of recipientID's notifications read. Repeating it is a no-op.
func (n *Notifier) MarkRead(ctx context.Context, recipientID string, notificationID uint) error {
	return n.store.Notifications.MarkAsRead(ctx, recipientID, notificationID)
}

// MarkAllRead marks every notification of recipientID read.
func (n *Notifier) MarkAllRead(ctx context.Context, recipientID string) error {
	return n.store.Notifications.MarkAllAsRead(ctx, recipientID)
}

func (n *Notifier) Delete(ctx context.Context, recipientID string, notificationID uint) error {
	return n.store.Notifications.DeleteNotification(ctx, recipientID, notificationID)
}
