package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/anonto42/storyhive/backend/internal/realtime"
	"github.com/anonto42/storyhive/backend/internal/repositories"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var errInjected = errors.New("injected failure")

type published struct {
	topic string
	event realtime.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, event realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{topic: topic, event: event})
	return nil
}

func (p *recordingPublisher) on(topic string) []realtime.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []realtime.Event
	for _, e := range p.events {
		if e.topic == topic {
			out = append(out, e.event)
		}
	}
	return out
}

type testEnv struct {
	ctx       context.Context
	store     *repositories.Store
	publisher *recordingPublisher
	hook      *test.Hook
	log       *logrus.Logger
	notifier  *Notifier
	engine    *RelationshipEngine
	feed      *FeedAssembler
	stories   *StoryService
	comments  *CommentService
	accounts  *AccountService
	tokens    *TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	store := repositories.NewMemoryStore()
	pub := &recordingPublisher{}
	notifier := NewNotifier(store, pub, log)
	tokens := NewTokenManager("test-secret", time.Hour)
	accounts := NewAccountService(store, tokens, nil, nil, log)
	accounts.cost = bcrypt.MinCost

	return &testEnv{
		ctx:       context.Background(),
		store:     store,
		publisher: pub,
		hook:      hook,
		log:       log,
		notifier:  notifier,
		engine:    NewRelationshipEngine(store, notifier, log),
		feed:      NewFeedAssembler(store, log),
		stories:   NewStoryService(store, notifier, pub, log),
		comments:  NewCommentService(store, notifier, log),
		accounts:  accounts,
		tokens:    tokens,
	}
}

func (e *testEnv) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{
		Username:    name,
		Email:       name + "@example.com",
		Preferences: models.DefaultPreferences(),
	}
	require.NoError(t, e.store.Users.CreateUser(e.ctx, u))
	return u
}

func (e *testEnv) reload(t *testing.T, u *models.User) *models.User {
	t.Helper()
	fresh, err := e.store.Users.GetUserByID(e.ctx, u.ID.Hex())
	require.NoError(t, err)
	return fresh
}

// story creates a published story by author with the given number of chapters.
func (e *testEnv) story(t *testing.T, author *models.User, title string, chapters int) *models.CreatedStory {
	t.Helper()
	req := models.CreateStoryRequest{Title: title, Category: "Fantasy"}
	for i := 0; i < chapters; i++ {
		req.Chapters = append(req.Chapters, models.ChapterInput{Content: "once upon a time"})
	}
	created, err := e.stories.CreateStory(e.ctx, author.ID.Hex(), req)
	require.NoError(t, err)
	return created
}

func (e *testEnv) notificationsFor(t *testing.T, u *models.User) []models.Notification {
	t.Helper()
	list, _, err := e.store.Notifications.GetByRecipientID(e.ctx, u.ID.Hex(), 1, 1000, false)
	require.NoError(t, err)
	return list
}

// failingUsers fails AddFollower, leaving the rest of the repository intact.
type failingUsers struct {
	repositories.UserRepository
}

func (failingUsers) AddFollower(ctx context.Context, userID, followerID string) (bool, error) {
	return false, errInjected
}

type failingBookmarks struct {
	repositories.BookmarkRepository
}

func (failingBookmarks) BookmarkedStoryIDs(ctx context.Context, userID string, storyIDs []string) (map[string]bool, error) {
	return nil, errInjected
}

type failingStories struct {
	repositories.StoryRepository
}

func (failingStories) DeleteStory(ctx context.Context, id string) error {
	return errInjected
}
