package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/anonto42/storyhive/backend/internal/realtime"
	"github.com/anonto42/storyhive/backend/internal/repositories"
	"github.com/anonto42/storyhive/backend/internal/services"
	"github.com/anonto42/storyhive/backend/internal/validators"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T) *api {
	t.Helper()
	log, _ := test.NewNullLogger()
	store := repositories.NewMemoryStore()
	hub := realtime.NewHub(log, "*")
	tokens := services.NewTokenManager("test-secret", time.Hour)
	notifier := services.NewNotifier(store, hub, log)
	feed := services.NewFeedAssembler(store, log)

	e := echo.New()
	e.Validator = validators.NewValidator()
	SetupRoutes(e, Deps{
		Tokens:        tokens,
		Accounts:      services.NewAccountService(store, tokens, nil, nil, log),
		Relationships: services.NewRelationshipEngine(store, notifier, log),
		Stories:       services.NewStoryService(store, notifier, hub, log),
		Feed:          feed,
		Comments:      services.NewCommentService(store, notifier, log),
		Notifier:      notifier,
		Hub:           hub,
		Log:           log,
	})
	return &api{t: t, e: e}
}

func (a *api) do(method, path, token string, body interface{}, out interface{}) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func (a *api) register(name string) services.AuthResult {
	a.t.Helper()
	var res services.AuthResult
	code := a.do(http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Username: name, Email: name + "@example.com", Password: "password123",
	}, &res)
	require.Equal(a.t, http.StatusCreated, code)
	return res
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/health", "", nil, &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRegisterValidationAndConflict(t *testing.T) {
	a := newAPI(t)
	a.register("writer")

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/auth/register", "",
		models.RegisterRequest{Username: "w", Email: "bad", Password: "x"}, nil))

	var body map[string]string
	code := a.do(http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Username: "writer", Email: "again@example.com", Password: "password123",
	}, &body)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", body["code"])
	assert.Equal(t, "Username or email already taken", body["message"])
}

func TestFollowFlowOverHTTP(t *testing.T) {
	a := newAPI(t)
	alice, bob := a.register("alice"), a.register("bob")

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/api/users/"+bob.User.ID+"/follow", "", nil, nil))

	var res models.FollowResult
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/users/"+bob.User.ID+"/follow", alice.Token, nil, &res))
	assert.True(t, res.Following)

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/users/"+bob.User.ID+"/follow-status", alice.Token, nil, &res))
	assert.True(t, res.Following)

	var profile models.Profile
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/users/"+bob.User.ID, "", nil, &profile))
	assert.Equal(t, 1, profile.FollowersCount)
	assert.Empty(t, profile.Email)

	var unread map[string]int64
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/notifications/unread-count", bob.Token, nil, &unread))
	assert.Equal(t, int64(1), unread["unreadCount"])

	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/follow/"+bob.User.ID, alice.Token, nil, &res))
	assert.False(t, res.Following)

	var body map[string]string
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/follow/"+alice.User.ID, alice.Token, nil, &body))
	assert.Equal(t, "invalid_operation", body["code"])
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/api/follow/000000000000000000000000", alice.Token, nil, nil))
}

func TestStoryLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	author, reader := a.register("author"), a.register("reader")

	var created models.CreatedStory
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/stories", author.Token, models.CreateStoryRequest{
		Title:    "Night Train",
		Category: "Mystery",
		Chapters: []models.ChapterInput{{Content: "departure"}, {Content: "arrival"}},
	}, &created))
	storyID := created.Story.ID.Hex()
	require.Len(t, created.Chapters, 2)

	var like models.LikeResult
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/stories/"+storyID+"/like", reader.Token, nil, &like))
	assert.True(t, like.Liked)
	assert.Equal(t, 1, like.LikesCount)

	var bookmark models.BookmarkResult
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/bookmarks/"+storyID, reader.Token, nil, &bookmark))
	assert.True(t, bookmark.Bookmarked)

	var feed []models.FeedStory
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/feed?sort=popular", reader.Token, nil, &feed))
	require.Len(t, feed, 1)
	assert.True(t, feed[0].IsLiked)
	assert.True(t, feed[0].IsBookmarked)

	var reads map[string]int64
	require.Equal(t, http.StatusOK, a.do(http.MethodPatch, "/api/stories/"+storyID+"/read", "", nil, &reads))
	assert.Equal(t, int64(1), reads["reads"])

	var chapter models.Chapter
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/chapters/story/"+storyID, author.Token,
		models.ChapterInput{Content: "epilogue"}, &chapter))
	assert.Equal(t, 3, chapter.ChapterNumber)

	var byAuthor []models.StoryView
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/stories/user/"+author.User.ID, "", nil, &byAuthor))
	assert.Len(t, byAuthor, 1)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/stories/user/not-hex", "", nil, nil))

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodDelete, "/api/stories/"+storyID, reader.Token, nil, nil))
	require.Equal(t, http.StatusOK, a.do(http.MethodDelete, "/api/stories/"+storyID, author.Token, nil, nil))
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/chapters/"+chapter.ID.Hex(), "", nil, nil))
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/stories/"+storyID+"/chapters", "", nil, nil))
}

func TestCommentsAndNotificationsOverHTTP(t *testing.T) {
	a := newAPI(t)
	author, reader := a.register("author"), a.register("reader")

	var created models.CreatedStory
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/stories", author.Token, models.CreateStoryRequest{
		Title: "Letters", Chapters: []models.ChapterInput{{Content: "dear reader"}},
	}, &created))
	storyID := created.Story.ID.Hex()

	var comment models.CommentView
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/stories/"+storyID+"/comments", reader.Token,
		models.CreateCommentRequest{Content: "moving"}, &comment))

	var comments []models.CommentView
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/stories/"+storyID+"/comments", "", nil, &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "reader", comments[0].Author.Username)

	var list models.NotificationList
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/notifications?filter=unread", author.Token, nil, &list))
	require.Len(t, list.Notifications, 1)
	note := list.Notifications[0]
	assert.Equal(t, models.NotificationComment, note.Type)

	path := "/api/notifications/" + jsonID(note.ID) + "/read"
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPatch, path, reader.Token, nil, nil))
	assert.Equal(t, http.StatusOK, a.do(http.MethodPatch, path, author.Token, nil, nil))
	assert.Equal(t, http.StatusOK, a.do(http.MethodPatch, path, author.Token, nil, nil))
	assert.Equal(t, http.StatusOK, a.do(http.MethodPatch, "/api/notifications/read-all", author.Token, nil, nil))
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPatch, "/api/notifications/abc/read", author.Token, nil, nil))

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/api/comments/"+jsonID(comment.ID), author.Token, nil, nil))
}

func jsonID(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
