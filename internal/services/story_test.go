package services

import (
	"testing"

	"github.com/anonto42/storyhive/backend/internal/apperror"
	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/anonto42/storyhive/backend/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateStoryValidation(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "author")

	cases := map[string]models.CreateStoryRequest{
		"blank title": {Title: "   ", Chapters: []models.ChapterInput{{Content: "x"}}},
		"no chapters": {Title: "Empty"},
		"empty chapter": {Title: "Hollow", Chapters: []models.ChapterInput{
			{Content: "fine"}, {Content: " "},
		}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.stories.CreateStory(env.ctx, author.ID.Hex(), req)
			assert.True(t, apperror.Is(err, apperror.KindInvalidOperation), "got %v", err)
		})
	}

	stories, err := env.store.Stories.ListByAuthor(env.ctx, author.ID.Hex(), true)
	require.NoError(t, err)
	assert.Empty(t, stories)
}

func TestCreateStoryNumbersChaptersAndFansOut(t *testing.T) {
	env := newTestEnv(t)
	author, fan := env.user(t, "author"), env.user(t, "fan")
	_, err := env.engine.ToggleFollow(env.ctx, fan.ID.Hex(), author.ID.Hex())
	require.NoError(t, err)

	created, err := env.stories.CreateStory(env.ctx, author.ID.Hex(), models.CreateStoryRequest{
		Title:    "  Saga ",
		Category: "Epic",
		Chapters: []models.ChapterInput{
			{Title: "Dawn", Content: "one"},
			{Content: "two"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Saga", created.Story.Title)
	assert.Equal(t, "author", created.Story.Author.Username)
	assert.Equal(t, models.StoryStatusOngoing, created.Story.Status)
	assert.Equal(t, "English", created.Story.Language)
	assert.True(t, created.Story.IsPublished)

	chapters, err := env.stories.ListChapters(env.ctx, created.Story.ID.Hex())
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	assert.Equal(t, 1, chapters[0].ChapterNumber)
	assert.Equal(t, "Dawn", chapters[0].Title)
	assert.Equal(t, 2, chapters[1].ChapterNumber)
	assert.Equal(t, "Chapter 2", chapters[1].Title)

	feedEvents := env.publisher.on(realtime.FeedTopic)
	require.Len(t, feedEvents, 1)
	assert.Equal(t, realtime.EventNewStory, feedEvents[0].Name)

	notes := env.notificationsFor(t, fan)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationNewStory, notes[0].Type)
	assert.Equal(t, created.Story.ID.Hex(), notes[0].StoryID)
}

func TestDraftStoryIsQuiet(t *testing.T) {
	env := newTestEnv(t)
	author, fan := env.user(t, "author"), env.user(t, "fan")
	_, err := env.engine.ToggleFollow(env.ctx, fan.ID.Hex(), author.ID.Hex())
	require.NoError(t, err)

	draft := false
	created, err := env.stories.CreateStory(env.ctx, author.ID.Hex(), models.CreateStoryRequest{
		Title: "Secret", IsPublished: &draft, Chapters: []models.ChapterInput{{Content: "x"}},
	})
	require.NoError(t, err)
	assert.Empty(t, env.publisher.on(realtime.FeedTopic))
	assert.Empty(t, env.notificationsFor(t, fan))

	public, err := env.stories.ListStoriesByAuthor(env.ctx, fan.ID.Hex(), author.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, public)

	own, err := env.stories.ListStoriesByAuthor(env.ctx, author.ID.Hex(), author.ID.Hex())
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, created.Story.ID, own[0].ID)
}

func TestDeleteStoryCascadesToChapters(t *testing.T) {
	env := newTestEnv(t)
	author, reader := env.user(t, "author"), env.user(t, "reader")
	created := env.story(t, author, "Doomed", 3)
	storyID := created.Story.ID.Hex()
	_, err := env.engine.ToggleBookmark(env.ctx, reader.ID.Hex(), storyID)
	require.NoError(t, err)

	require.NoError(t, env.stories.DeleteStory(env.ctx, author.ID.Hex(), storyID))

	_, err = env.stories.GetStory(env.ctx, storyID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	for _, chapter := range created.Chapters {
		_, err := env.stories.GetChapter(env.ctx, chapter.ID.Hex())
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	}
	count, err := env.store.Chapters.CountByStory(env.ctx, storyID)
	require.NoError(t, err)
	assert.Zero(t, count)

	bookmarked, err := env.store.Bookmarks.IsBookmarked(env.ctx, reader.ID.Hex(), storyID)
	require.NoError(t, err)
	assert.False(t, bookmarked)
}

func TestDeleteStoryRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	author, intruder := env.user(t, "author"), env.user(t, "intruder")
	created := env.story(t, author, "Mine", 2)

	err := env.stories.DeleteStory(env.ctx, intruder.ID.Hex(), created.Story.ID.Hex())
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	count, err := env.store.Chapters.CountByStory(env.ctx, created.Story.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestDeleteStoryFailureKeepsChapters(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "author")
	created := env.story(t, author, "Sticky", 3)

	env.store.Stories = failingStories{env.store.Stories}
	err := env.stories.DeleteStory(env.ctx, author.ID.Hex(), created.Story.ID.Hex())
	require.ErrorIs(t, err, errInjected)

	count, err := env.store.Chapters.CountByStory(env.ctx, created.Story.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count, "no half cascade")
}

func TestAddChapterAppendsAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	author, fan := env.user(t, "author"), env.user(t, "fan")
	created := env.story(t, author, "Serial", 2)
	_, err := env.engine.ToggleFollow(env.ctx, fan.ID.Hex(), author.ID.Hex())
	require.NoError(t, err)

	chapter, err := env.stories.AddChapter(env.ctx, author.ID.Hex(), created.Story.ID.Hex(), models.ChapterInput{Content: "three"})
	require.NoError(t, err)
	assert.Equal(t, 3, chapter.ChapterNumber)
	assert.Equal(t, "Chapter 3", chapter.Title)

	notes := env.notificationsFor(t, fan)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationNewChapter, notes[0].Type)
	assert.Equal(t, chapter.ID.Hex(), notes[0].ChapterID)
	assert.Contains(t, notes[0].Message, `"Serial"`)

	_, err = env.stories.AddChapter(env.ctx, fan.ID.Hex(), created.Story.ID.Hex(), models.ChapterInput{Content: "x"})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
}

func TestAddChapterAfterDeletingMiddleChapter(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "author")
	created := env.story(t, author, "Serial", 3)
	storyID := created.Story.ID.Hex()

	require.NoError(t, env.stories.DeleteChapter(env.ctx, author.ID.Hex(), created.Chapters[1].ID.Hex()))
	for _, want := range []int{4, 5} {
		chapter, err := env.stories.AddChapter(env.ctx, author.ID.Hex(), storyID, models.ChapterInput{Content: "more"})
		require.NoError(t, err)
		assert.Equal(t, want, chapter.ChapterNumber)
	}

	chapters, err := env.stories.ListChapters(env.ctx, storyID)
	require.NoError(t, err)
	for i := 1; i < len(chapters); i++ {
		assert.Less(t, chapters[i-1].ChapterNumber, chapters[i].ChapterNumber)
	}
	assert.Len(t, chapters, 4)
}

func TestListStoriesByMalformedAuthor(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.stories.ListStoriesByAuthor(env.ctx, "", "not-hex")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestUpdateStoryAndChapter(t *testing.T) {
	env := newTestEnv(t)
	author, other := env.user(t, "author"), env.user(t, "other")
	created := env.story(t, author, "Before", 1)

	updated, err := env.stories.UpdateStory(env.ctx, author.ID.Hex(), created.Story.ID.Hex(), models.UpdateStoryRequest{
		Title:  "After",
		Status: models.StoryStatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Title)
	assert.Equal(t, models.StoryStatusCompleted, updated.Status)
	assert.Equal(t, "Fantasy", updated.Category, "empty fields keep their value")

	_, err = env.stories.UpdateStory(env.ctx, other.ID.Hex(), created.Story.ID.Hex(), models.UpdateStoryRequest{Title: "Hijack"})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	chapterID := created.Chapters[0].ID.Hex()
	chapter, err := env.stories.UpdateChapter(env.ctx, author.ID.Hex(), chapterID, models.UpdateChapterRequest{Content: "revised"})
	require.NoError(t, err)
	assert.Equal(t, "revised", chapter.Content)
	assert.Equal(t, "Chapter 1", chapter.Title)

	assert.True(t, apperror.Is(env.stories.DeleteChapter(env.ctx, other.ID.Hex(), chapterID), apperror.KindUnauthorized))
	require.NoError(t, env.stories.DeleteChapter(env.ctx, author.ID.Hex(), chapterID))
	_, err = env.stories.GetChapter(env.ctx, chapterID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestListBookmarksSkipsDeletedStories(t *testing.T) {
	env := newTestEnv(t)
	author, reader := env.user(t, "author"), env.user(t, "reader")
	kept := env.story(t, author, "Kept", 1)
	gone := env.story(t, author, "Gone", 1)

	for _, s := range []*models.CreatedStory{kept, gone} {
		_, err := env.engine.ToggleBookmark(env.ctx, reader.ID.Hex(), s.Story.ID.Hex())
		require.NoError(t, err)
	}
	require.NoError(t, env.store.Stories.DeleteStory(env.ctx, gone.Story.ID.Hex()))

	views, err := env.stories.ListBookmarks(env.ctx, reader.ID.Hex())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Kept", views[0].Title)
}
