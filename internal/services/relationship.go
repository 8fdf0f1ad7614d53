package services

import (
	"context"

	"github.com/anonto42/storyhive/backend/internal/apperror"
	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/anonto42/storyhive/backend/internal/repositories"
	"github.com/sirupsen/logrus"
)

// likeAttempts bounds the add/remove loop when concurrent toggles keep
// flipping the membership between our two conditional updates.
const likeAttempts = 5

// RelationshipEngine owns follow edges and like/bookmark membership.
type RelationshipEngine struct {
	store    *repositories.Store
	notifier *Notifier
	log      logrus.FieldLogger
}

func NewRelationshipEngine(store *repositories.Store, notifier *Notifier, log logrus.FieldLogger) *RelationshipEngine {
	return &RelationshipEngine{store: store, notifier: notifier, log: log}
}

// ToggleFollow flips whether actor follows target, updating both users'
// edge sets in one transaction. Only the follow branch notifies target.
func (e *RelationshipEngine) ToggleFollow(ctx context.Context, actorID, targetID string) (models.FollowResult, error) {
	if actorID == targetID {
		return models.FollowResult{}, apperror.InvalidOperation("Cannot follow yourself")
	}

	var following bool
	err := e.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := e.store.Users.GetUserByID(ctx, targetID); err != nil {
			return err
		}
		added, err := e.store.Users.AddFollowing(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if added {
			following = true
			_, err = e.store.Users.AddFollower(ctx, targetID, actorID)
			return err
		}
		following = false
		if _, err := e.store.Users.RemoveFollowing(ctx, actorID, targetID); err != nil {
			return err
		}
		_, err = e.store.Users.RemoveFollower(ctx, targetID, actorID)
		return err
	})
	if err != nil {
		return models.FollowResult{}, err
	}

	if following {
		e.notify(ctx, targetID, actorID, models.NotificationFollow, NotifyTarget{})
	}
	return models.FollowResult{Following: following}, nil
}

// FollowStatus reports whether actor currently follows target.
func (e *RelationshipEngine) FollowStatus(ctx context.Context, actorID, targetID string) (models.FollowResult, error) {
	actor, err := e.store.Users.GetUserByID(ctx, actorID)
	if err != nil {
		return models.FollowResult{}, err
	}
	target, err := e.store.Users.GetUserByID(ctx, targetID)
	if err != nil {
		return models.FollowResult{}, err
	}
	return models.FollowResult{Following: actor.IsFollowing(target.ID)}, nil
}

// ToggleLike flips actor's membership in the story's likes. Liking someone
// else's story notifies the author.
func (e *RelationshipEngine) ToggleLike(ctx context.Context, actorID, storyID string) (models.LikeResult, error) {
	for attempt := 0; attempt < likeAttempts; attempt++ {
		story, added, err := e.store.Stories.AddLike(ctx, storyID, actorID)
		if err != nil {
			return models.LikeResult{}, err
		}
		if added {
			e.notify(ctx, story.Author.Hex(), actorID, models.NotificationLikeStory, NotifyTarget{StoryID: storyID})
			return models.LikeResult{Liked: true, LikesCount: len(story.Likes)}, nil
		}

		story, removed, err := e.store.Stories.RemoveLike(ctx, storyID, actorID)
		if err != nil {
			return models.LikeResult{}, err
		}
		if removed {
			return models.LikeResult{Liked: false, LikesCount: len(story.Likes)}, nil
		}
	}
	return models.LikeResult{}, apperror.Conflict("like is being toggled concurrently, retry the request")
}

// ToggleBookmark saves the story for actor, or removes the save if one exists.
// The unique (user, story) index reports an existing save as Conflict.
func (e *RelationshipEngine) ToggleBookmark(ctx context.Context, actorID, storyID string) (models.BookmarkResult, error) {
	if _, err := e.store.Stories.GetStoryByID(ctx, storyID); err != nil {
		return models.BookmarkResult{}, err
	}

	err := e.store.Bookmarks.CreateBookmark(ctx, &models.Bookmark{UserID: actorID, StoryID: storyID})
	if err == nil {
		return models.BookmarkResult{Bookmarked: true}, nil
	}
	if !apperror.Is(err, apperror.KindConflict) {
		return models.BookmarkResult{}, err
	}
	if _, err := e.store.Bookmarks.DeleteBookmark(ctx, actorID, storyID); err != nil {
		return models.BookmarkResult{}, err
	}
	return models.BookmarkResult{Bookmarked: false}, nil
}

// ReconcileFollowGraph repairs asymmetric follow edges. The follower's
// following set is authoritative: missing follower entries are added and
// follower entries without a matching following entry are removed.
func (e *RelationshipEngine) ReconcileFollowGraph(ctx context.Context) (models.ReconcileReport, error) {
	var report models.ReconcileReport
	ids, err := e.store.Users.ListUserIDs(ctx)
	if err != nil {
		return report, err
	}

	for _, id := range ids {
		user, err := e.store.Users.GetUserByID(ctx, id)
		if apperror.Is(err, apperror.KindNotFound) {
			continue
		}
		if err != nil {
			return report, err
		}
		report.UsersChecked++

		for _, followedID := range user.Following {
			followed, err := e.store.Users.GetUserByID(ctx, followedID.Hex())
			switch {
			case apperror.Is(err, apperror.KindNotFound):
				if _, err := e.store.Users.RemoveFollowing(ctx, id, followedID.Hex()); err != nil {
					return report, err
				}
				report.FollowingRemoved++
			case err != nil:
				return report, err
			case !followed.HasFollower(user.ID):
				added, err := e.store.Users.AddFollower(ctx, followedID.Hex(), id)
				if err != nil {
					return report, err
				}
				if added {
					report.FollowersAdded++
				}
			}
		}

		for _, followerID := range user.Followers {
			follower, err := e.store.Users.GetUserByID(ctx, followerID.Hex())
			if err != nil && !apperror.Is(err, apperror.KindNotFound) {
				return report, err
			}
			if err == nil && follower.IsFollowing(user.ID) {
				continue
			}
			removed, err := e.store.Users.RemoveFollower(ctx, id, followerID.Hex())
			if err != nil {
				return report, err
			}
			if removed {
				report.FollowersRemoved++
			}
		}
	}

	e.log.WithFields(logrus.Fields{
		"users":             report.UsersChecked,
		"followers_added":   report.FollowersAdded,
		"followers_removed": report.FollowersRemoved,
		"following_removed": report.FollowingRemoved,
	}).Info("follow graph reconciled")
	return report, nil
}

// notify records a notification after the mutation committed. The mutation's
// result stands even if the notification cannot be written.
func (e *RelationshipEngine) notify(ctx context.Context, recipientID, senderID string, typ models.NotificationType, target NotifyTarget) {
	if _, err := e.notifier.Notify(ctx, recipientID, senderID, typ, target); err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{
			"recipient": recipientID,
			"sender":    senderID,
			"type":      typ,
		}).Error("notification not recorded")
	}
}
