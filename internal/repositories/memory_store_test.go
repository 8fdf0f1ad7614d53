package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/anonto42/storyhive/backend/internal/apperror"
	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(t *testing.T, store *Store, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com"}
	require.NoError(t, store.Users.CreateUser(context.Background(), u))
	return u
}

func TestMemoryUserUniqueness(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	newUser(t, store, "ana")

	err := store.Users.CreateUser(ctx, &models.User{Username: "ana", Email: "other@example.com"})
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	err = store.Users.CreateUser(ctx, &models.User{Username: "other", Email: "ana@example.com"})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	_, err = store.Users.GetUserByID(ctx, "not-hex")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestMemoryEdgeSetsReportChanges(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	a, b := newUser(t, store, "a"), newUser(t, store, "b")

	changed, err := store.Users.AddFollowing(ctx, a.ID.Hex(), b.ID.Hex())
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = store.Users.AddFollowing(ctx, a.ID.Hex(), b.ID.Hex())
	require.NoError(t, err)
	assert.False(t, changed, "set semantics")

	changed, err = store.Users.RemoveFollower(ctx, b.ID.Hex(), a.ID.Hex())
	require.NoError(t, err)
	assert.False(t, changed, "nothing to remove")

	changed, err = store.Users.RemoveFollowing(ctx, a.ID.Hex(), b.ID.Hex())
	require.NoError(t, err)
	assert.True(t, changed)

	fresh, err := store.Users.GetUserByID(ctx, a.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, fresh.Following)
}

func TestMemoryReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	a, b := newUser(t, store, "a"), newUser(t, store, "b")
	_, err := store.Users.AddFollowing(ctx, a.ID.Hex(), b.ID.Hex())
	require.NoError(t, err)

	got, err := store.Users.GetUserByID(ctx, a.ID.Hex())
	require.NoError(t, err)
	got.Following = nil

	again, err := store.Users.GetUserByID(ctx, a.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, again.Following, 1)
}

func TestMemoryBookmarkUniqueness(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Bookmarks.CreateBookmark(ctx, &models.Bookmark{UserID: "u", StoryID: "s"}))
	err := store.Bookmarks.CreateBookmark(ctx, &models.Bookmark{UserID: "u", StoryID: "s"})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	removed, err := store.Bookmarks.DeleteBookmark(ctx, "u", "s")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.Bookmarks.DeleteBookmark(ctx, "u", "s")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMemoryTransactionRollsBack(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	a, b := newUser(t, store, "a"), newUser(t, store, "b")
	boom := errors.New("boom")

	err := store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := store.Users.AddFollowing(ctx, a.ID.Hex(), b.ID.Hex()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	fresh, err := store.Users.GetUserByID(ctx, a.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, fresh.Following)

	require.NoError(t, store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := store.Users.AddFollowing(ctx, a.ID.Hex(), b.ID.Hex())
		return err
	}))
	fresh, err = store.Users.GetUserByID(ctx, a.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, fresh.Following, 1)
}

func TestMemoryAppendChapterNumbers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	author := newUser(t, store, "author")
	story := &models.Story{Title: "T", Author: author.ID, IsPublished: true}
	require.NoError(t, store.Stories.CreateStory(ctx, story))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Chapters.AppendChapter(ctx, &models.Chapter{Story: story.ID, Content: "x"}))
	}
	chapters, err := store.Chapters.ListByStory(ctx, story.ID.Hex())
	require.NoError(t, err)
	require.Len(t, chapters, 3)
	for i, ch := range chapters {
		assert.Equal(t, i+1, ch.ChapterNumber)
	}
	assert.Equal(t, "Chapter 3", chapters[2].Title)

	deleted, err := store.Chapters.DeleteByStory(ctx, story.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}

func TestMemoryNotificationsOwnedByRecipient(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	n := &models.Notification{RecipientID: "r", SenderID: "s", Type: models.NotificationFollow}
	require.NoError(t, store.Notifications.CreateNotification(ctx, n))

	err := store.Notifications.MarkAsRead(ctx, "someone-else", n.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	require.NoError(t, store.Notifications.MarkAsRead(ctx, "r", n.ID))

	unread, err := store.Notifications.GetUnreadCount(ctx, "r")
	require.NoError(t, err)
	assert.Zero(t, unread)

	require.NoError(t, store.Notifications.DeleteByUser(ctx, "s"))
	_, total, err := store.Notifications.GetByRecipientID(ctx, "r", 1, 10, false)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMemoryAppendAfterDeletingMiddleChapter(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	author := newUser(t, store, "author")
	story := &models.Story{Title: "T", Author: author.ID}
	require.NoError(t, store.Stories.CreateStory(ctx, story))

	var middle *models.Chapter
	for i := 0; i < 3; i++ {
		ch := &models.Chapter{Story: story.ID, Content: "x"}
		require.NoError(t, store.Chapters.AppendChapter(ctx, ch))
		if i == 1 {
			middle = ch
		}
	}
	require.NoError(t, store.Chapters.DeleteChapter(ctx, middle.ID.Hex()))

	next := &models.Chapter{Story: story.ID, Content: "y"}
	require.NoError(t, store.Chapters.AppendChapter(ctx, next))
	assert.Equal(t, 4, next.ChapterNumber)

	chapters, err := store.Chapters.ListByStory(ctx, story.ID.Hex())
	require.NoError(t, err)
	numbers := make([]int, len(chapters))
	for i, ch := range chapters {
		numbers[i] = ch.ChapterNumber
	}
	assert.Equal(t, []int{1, 3, 4}, numbers)
}

func TestMemoryRollbackKeepsWritesOutsideTheTransaction(t *testing.T) {
	store := NewMemoryStore()
	base := context.Background()
	a, b := newUser(t, store, "a"), newUser(t, store, "b")
	story := &models.Story{Title: "T", Author: b.ID}
	require.NoError(t, store.Stories.CreateStory(base, story))
	boom := errors.New("boom")

	err := store.Tx.WithTransaction(base, func(ctx context.Context) error {
		if _, err := store.Users.AddFollowing(ctx, a.ID.Hex(), b.ID.Hex()); err != nil {
			return err
		}

		done := make(chan error, 1)
		go func() {
			if err := store.Notifications.CreateNotification(base, &models.Notification{RecipientID: "r", Type: models.NotificationFollow}); err != nil {
				done <- err
				return
			}
			_, _, err := store.Stories.AddLike(base, story.ID.Hex(), a.ID.Hex())
			done <- err
		}()
		if err := <-done; err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	unread, err := store.Notifications.GetUnreadCount(base, "r")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
	liked, err := store.Stories.GetStoryByID(base, story.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, liked.Likes, 1)

	fresh, err := store.Users.GetUserByID(base, a.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, fresh.Following)
}

func TestMemoryRollbackRestoresDeletedStoryAndChapters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	author := newUser(t, store, "author")
	story := &models.Story{Title: "T", Author: author.ID}
	require.NoError(t, store.Stories.CreateStory(ctx, story))
	require.NoError(t, store.Chapters.CreateChapters(ctx, []*models.Chapter{
		{Story: story.ID, ChapterNumber: 1, Content: "a"},
		{Story: story.ID, ChapterNumber: 2, Content: "b"},
	}))
	boom := errors.New("boom")

	err := store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := store.Chapters.DeleteByStory(ctx, story.ID.Hex()); err != nil {
			return err
		}
		if err := store.Stories.DeleteStory(ctx, story.ID.Hex()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Stories.GetStoryByID(ctx, story.ID.Hex())
	require.NoError(t, err)
	count, err := store.Chapters.CountByStory(ctx, story.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMemoryListByAuthorMalformedID(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Stories.ListByAuthor(context.Background(), "not-hex", true)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}
