package services

import (
	"sync"
	"testing"

	"github.com/anonto42/storyhive/backend/internal/apperror"
	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/anonto42/storyhive/backend/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func assertSymmetric(t *testing.T, env *testEnv, a, b *models.User) {
	t.Helper()
	a, b = env.reload(t, a), env.reload(t, b)
	assert.Equal(t, a.IsFollowing(b.ID), b.HasFollower(a.ID), "a→b edge must be mirrored")
	assert.Equal(t, b.IsFollowing(a.ID), a.HasFollower(b.ID), "b→a edge must be mirrored")
}

func TestFollowCreatesBothEdgesAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.user(t, "alice"), env.user(t, "bob")

	res, err := env.engine.ToggleFollow(env.ctx, alice.ID.Hex(), bob.ID.Hex())
	require.NoError(t, err)
	assert.True(t, res.Following)

	assert.True(t, env.reload(t, alice).IsFollowing(bob.ID))
	assert.True(t, env.reload(t, bob).HasFollower(alice.ID))

	notes := env.notificationsFor(t, bob)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationFollow, notes[0].Type)
	assert.Equal(t, alice.ID.Hex(), notes[0].SenderID)
	assert.Equal(t, bob.ID.Hex(), notes[0].RecipientID)
	assert.False(t, notes[0].IsRead)
	assert.Equal(t, "alice started following you", notes[0].Message)

	pushes := env.publisher.on(realtime.UserTopic(bob.ID.Hex()))
	require.Len(t, pushes, 1)
	assert.Equal(t, realtime.EventNewNotification, pushes[0].Name)
}

func TestFollowToggleTwiceRestoresState(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.user(t, "alice"), env.user(t, "bob")

	_, err := env.engine.ToggleFollow(env.ctx, alice.ID.Hex(), bob.ID.Hex())
	require.NoError(t, err)
	res, err := env.engine.ToggleFollow(env.ctx, alice.ID.Hex(), bob.ID.Hex())
	require.NoError(t, err)
	assert.False(t, res.Following)

	assert.Empty(t, env.reload(t, alice).Following)
	assert.Empty(t, env.reload(t, bob).Followers)
	assert.Len(t, env.notificationsFor(t, bob), 1, "unfollow does not notify")

	status, err := env.engine.FollowStatus(env.ctx, alice.ID.Hex(), bob.ID.Hex())
	require.NoError(t, err)
	assert.False(t, status.Following)
}

func TestFollowSelfIsRejected(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")

	_, err := env.engine.ToggleFollow(env.ctx, alice.ID.Hex(), alice.ID.Hex())
	assert.True(t, apperror.Is(err, apperror.KindInvalidOperation))

	alice = env.reload(t, alice)
	assert.Empty(t, alice.Following)
	assert.Empty(t, alice.Followers)
}

func TestFollowMissingUsers(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	ghost := primitive.NewObjectID().Hex()

	_, err := env.engine.ToggleFollow(env.ctx, alice.ID.Hex(), ghost)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = env.engine.ToggleFollow(env.ctx, ghost, alice.ID.Hex())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = env.engine.ToggleFollow(env.ctx, alice.ID.Hex(), "not-an-id")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	alice = env.reload(t, alice)
	assert.Empty(t, alice.Following)
	assert.Empty(t, alice.Followers)
}

func TestFollowRollsBackWhenSecondWriteFails(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.user(t, "alice"), env.user(t, "bob")

	env.store.Users = failingUsers{env.store.Users}
	_, err := env.engine.ToggleFollow(env.ctx, alice.ID.Hex(), bob.ID.Hex())
	require.ErrorIs(t, err, errInjected)

	assert.Empty(t, env.reload(t, alice).Following, "first write must be rolled back")
	assert.Empty(t, env.reload(t, bob).Followers)
	assert.Empty(t, env.notificationsFor(t, bob))
}

func TestConcurrentFollowTogglesStaySymmetric(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.user(t, "alice"), env.user(t, "bob")

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := env.engine.ToggleFollow(env.ctx, alice.ID.Hex(), bob.ID.Hex())
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := env.engine.ToggleFollow(env.ctx, bob.ID.Hex(), alice.ID.Hex())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assertSymmetric(t, env, alice, bob)
	// 25 toggles each: odd, so both end up following.
	assert.True(t, env.reload(t, alice).IsFollowing(bob.ID))
	assert.True(t, env.reload(t, bob).IsFollowing(alice.ID))
}

func TestLikeToggleScenario(t *testing.T) {
	env := newTestEnv(t)
	author, reader := env.user(t, "author"), env.user(t, "reader")
	story := env.story(t, author, "Dune Sea", 1)
	storyID := story.Story.ID.Hex()

	res, err := env.engine.ToggleLike(env.ctx, reader.ID.Hex(), storyID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Liked: true, LikesCount: 1}, res)

	res, err = env.engine.ToggleLike(env.ctx, reader.ID.Hex(), storyID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Liked: false, LikesCount: 0}, res)

	res, err = env.engine.ToggleLike(env.ctx, reader.ID.Hex(), storyID)
	require.NoError(t, err)
	assert.True(t, res.Liked, "odd number of toggles ends liked")

	notes := env.notificationsFor(t, author)
	var likes []models.Notification
	for _, n := range notes {
		if n.Type == models.NotificationLikeStory {
			likes = append(likes, n)
		}
	}
	require.Len(t, likes, 2, "each like branch notifies, unlike does not")
	assert.Equal(t, reader.ID.Hex(), likes[0].SenderID)
	assert.Equal(t, storyID, likes[0].StoryID)
	assert.Equal(t, `Someone liked your story "Dune Sea"`, likes[0].Message)
}

func TestLikeByOtherUserCreatesExactlyOneNotification(t *testing.T) {
	env := newTestEnv(t)
	author, reader := env.user(t, "author"), env.user(t, "reader")
	story := env.story(t, author, "Tides", 1)

	_, err := env.engine.ToggleLike(env.ctx, reader.ID.Hex(), story.Story.ID.Hex())
	require.NoError(t, err)

	notes := env.notificationsFor(t, author)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationLikeStory, notes[0].Type)
	assert.Equal(t, author.ID.Hex(), notes[0].RecipientID)
	assert.Equal(t, reader.ID.Hex(), notes[0].SenderID)
}

func TestLikeOwnStoryDoesNotNotify(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "author")
	story := env.story(t, author, "Mirror", 1)

	res, err := env.engine.ToggleLike(env.ctx, author.ID.Hex(), story.Story.ID.Hex())
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Empty(t, env.notificationsFor(t, author))
}

func TestLikeMissingStory(t *testing.T) {
	env := newTestEnv(t)
	reader := env.user(t, "reader")

	_, err := env.engine.ToggleLike(env.ctx, reader.ID.Hex(), primitive.NewObjectID().Hex())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestConcurrentLikesAreNotLost(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "author")
	story := env.story(t, author, "Crowd", 1)

	const readers = 30
	users := make([]*models.User, readers)
	for i := range users {
		users[i] = env.user(t, "reader"+primitive.NewObjectID().Hex()[18:])
	}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u *models.User) {
			defer wg.Done()
			_, err := env.engine.ToggleLike(env.ctx, u.ID.Hex(), story.Story.ID.Hex())
			assert.NoError(t, err)
		}(u)
	}
	wg.Wait()

	fresh, err := env.store.Stories.GetStoryByID(env.ctx, story.Story.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, fresh.Likes, readers)
}

func TestBookmarkToggleIsItsOwnInverse(t *testing.T) {
	env := newTestEnv(t)
	author, reader := env.user(t, "author"), env.user(t, "reader")
	story := env.story(t, author, "Saved", 1)
	storyID := story.Story.ID.Hex()

	res, err := env.engine.ToggleBookmark(env.ctx, reader.ID.Hex(), storyID)
	require.NoError(t, err)
	assert.True(t, res.Bookmarked)

	rows, err := env.store.Bookmarks.ListByUser(env.ctx, reader.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	res, err = env.engine.ToggleBookmark(env.ctx, reader.ID.Hex(), storyID)
	require.NoError(t, err)
	assert.False(t, res.Bookmarked)

	rows, err = env.store.Bookmarks.ListByUser(env.ctx, reader.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, rows, "no stale rows accumulate")
	assert.Empty(t, env.notificationsFor(t, author), "bookmarks are private")
}

func TestBookmarkUniqueUnderConcurrency(t *testing.T) {
	env := newTestEnv(t)
	author, reader := env.user(t, "author"), env.user(t, "reader")
	story := env.story(t, author, "Race", 1)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.engine.ToggleBookmark(env.ctx, reader.ID.Hex(), story.Story.ID.Hex())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rows, err := env.store.Bookmarks.ListByUser(env.ctx, reader.ID.Hex())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(rows), 1)
}

func TestBookmarkMissingStory(t *testing.T) {
	env := newTestEnv(t)
	reader := env.user(t, "reader")

	_, err := env.engine.ToggleBookmark(env.ctx, reader.ID.Hex(), primitive.NewObjectID().Hex())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestReconcileRepairsAsymmetricEdges(t *testing.T) {
	env := newTestEnv(t)
	alice, bob, carol := env.user(t, "alice"), env.user(t, "bob"), env.user(t, "carol")

	// alice follows bob but bob's followers was never written.
	_, err := env.store.Users.AddFollowing(env.ctx, alice.ID.Hex(), bob.ID.Hex())
	require.NoError(t, err)
	// carol is listed as bob's follower without following him.
	_, err = env.store.Users.AddFollower(env.ctx, bob.ID.Hex(), carol.ID.Hex())
	require.NoError(t, err)
	// carol follows someone who no longer exists.
	_, err = env.store.Users.AddFollowing(env.ctx, carol.ID.Hex(), primitive.NewObjectID().Hex())
	require.NoError(t, err)

	report, err := env.engine.ReconcileFollowGraph(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.UsersChecked)
	assert.Equal(t, 1, report.FollowersAdded)
	assert.Equal(t, 1, report.FollowersRemoved)
	assert.Equal(t, 1, report.FollowingRemoved)

	assertSymmetric(t, env, alice, bob)
	assertSymmetric(t, env, bob, carol)
	assert.True(t, env.reload(t, bob).HasFollower(alice.ID))
	assert.Empty(t, env.reload(t, carol).Following)

	again, err := env.engine.ReconcileFollowGraph(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, again.FollowersAdded+again.FollowersRemoved+again.FollowingRemoved)
}
