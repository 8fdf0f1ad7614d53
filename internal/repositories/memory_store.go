package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/storyhive/backend/internal/apperror"
	"github.com/anonto42/storyhive/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryState is the shared state behind the in-memory repositories. Every
// method takes mu for the duration of one call, so each call is atomic the
// same way a single-document store operation is. Writes made inside a
// transaction are journaled so a failed transaction reverts only its own writes.
type memoryState struct {
	mu            sync.Mutex
	txMu          sync.Mutex
	users         map[primitive.ObjectID]*models.User
	stories       map[primitive.ObjectID]*models.Story
	chapters      map[primitive.ObjectID]*models.Chapter
	bookmarks     map[bookmarkKey]*models.Bookmark
	notifications map[uint]*models.Notification
	comments      map[uint]*models.Comment
	nextID        uint
}

type bookmarkKey struct {
	userID  string
	storyID string
}

// NewMemoryStore returns a Store whose repositories share one in-process state.
func NewMemoryStore() *Store {
	state := &memoryState{
		users:         map[primitive.ObjectID]*models.User{},
		stories:       map[primitive.ObjectID]*models.Story{},
		chapters:      map[primitive.ObjectID]*models.Chapter{},
		bookmarks:     map[bookmarkKey]*models.Bookmark{},
		notifications: map[uint]*models.Notification{},
		comments:      map[uint]*models.Comment{},
	}
	return &Store{
		Users:         &memoryUserRepository{state},
		Stories:       &memoryStoryRepository{state},
		Chapters:      &memoryChapterRepository{state},
		Bookmarks:     &memoryBookmarkRepository{state},
		Notifications: &memoryNotificationRepository{state},
		Comments:      &memoryCommentRepository{state},
		Tx:            &memoryTxRunner{state},
	}
}

func (s *memoryState) newSequence() uint {
	s.nextID++
	return s.nextID
}

func copyIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(ids))
	copy(out, ids)
	return out
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Followers = copyIDs(u.Followers)
	c.Following = copyIDs(u.Following)
	return &c
}

func copyStory(st *models.Story) *models.Story {
	c := *st
	c.Likes = copyIDs(st.Likes)
	c.Tags = append([]string(nil), st.Tags...)
	return &c
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

type txJournalKey struct{}

// undoJournal collects the inverse of every write made inside one transaction.
type undoJournal struct {
	steps []func()
}

// journal records undo for a write when ctx belongs to a transaction. Caller holds mu.
func (s *memoryState) journal(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(txJournalKey{}).(*undoJournal); ok {
		j.steps = append(j.steps, undo)
	}
}

// memoryTxRunner serialises transactions and, when fn fails, replays the
// journal backwards. Writes from outside the transaction are left alone.
type memoryTxRunner struct {
	state *memoryState
}

func (r *memoryTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.state.txMu.Lock()
	defer r.state.txMu.Unlock()

	j := &undoJournal{}
	if err := fn(context.WithValue(ctx, txJournalKey{}, j)); err != nil {
		r.state.mu.Lock()
		for i := len(j.steps) - 1; i >= 0; i-- {
			j.steps[i]()
		}
		r.state.mu.Unlock()
		return err
	}
	return nil
}

type memoryUserRepository struct {
	state *memoryState
}

func (r *memoryUserRepository) uniqueViolation(id primitive.ObjectID, username, email, firebaseUID string) bool {
	for _, u := range r.state.users {
		if u.ID == id {
			continue
		}
		if (username != "" && u.Username == username) ||
			(email != "" && u.Email == email) ||
			(firebaseUID != "" && u.FirebaseUID == firebaseUID) {
			return true
		}
	}
	return false
}

func (r *memoryUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if r.uniqueViolation(primitive.NilObjectID, user.Username, user.Email, user.FirebaseUID) {
		return apperror.Conflict("User already exists")
	}
	user.ID = primitive.NewObjectID()
	if user.JoinedDate.IsZero() {
		user.JoinedDate = time.Now()
	}
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	r.state.users[user.ID] = copyUser(user)
	id := user.ID
	r.state.journal(ctx, func() { delete(r.state.users, id) })
	return nil
}

func (r *memoryUserRepository) get(id string) (*models.User, error) {
	objID, err := parseObjectID(id, "User")
	if err != nil {
		return nil, err
	}
	user, ok := r.state.users[objID]
	if !ok {
		return nil, apperror.NotFound("User not found")
	}
	return user, nil
}

func (r *memoryUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	user, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return copyUser(user), nil
}

func (r *memoryUserRepository) findBy(match func(*models.User) bool) (*models.User, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, u := range r.state.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, apperror.NotFound("User not found")
}

func (r *memoryUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return u.Email == email })
}

func (r *memoryUserRepository) GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error) {
	return r.findBy(func(u *models.User) bool { return firebaseUID != "" && u.FirebaseUID == firebaseUID })
}

func (r *memoryUserRepository) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	users := []models.User{}
	seen := map[primitive.ObjectID]bool{}
	for _, objID := range parseObjectIDs(ids) {
		if u, ok := r.state.users[objID]; ok && !seen[objID] {
			seen[objID] = true
			users = append(users, *copyUser(u))
		}
	}
	return users, nil
}

func (r *memoryUserRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	ids := make([]string, 0, len(r.state.users))
	for id := range r.state.users {
		ids = append(ids, id.Hex())
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memoryUserRepository) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*models.User, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	user, err := r.get(id)
	if err != nil {
		return nil, err
	}
	var username, email string
	if update.Username != nil {
		username = *update.Username
	}
	if update.Email != nil {
		email = *update.Email
	}
	if r.uniqueViolation(user.ID, username, email, "") {
		return nil, apperror.Conflict("User already exists")
	}
	before := *user
	r.state.journal(ctx, func() {
		if u, ok := r.state.users[before.ID]; ok {
			restoreProfile(u, &before, update)
		}
	})
	if update.Username != nil {
		user.Username = *update.Username
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	if update.ProfilePicture != nil {
		user.ProfilePicture = *update.ProfilePicture
	}
	return copyUser(user), nil
}

// restoreProfile puts back the fields update changed.
func restoreProfile(u, before *models.User, update ProfileUpdate) {
	if update.Username != nil {
		u.Username = before.Username
	}
	if update.Email != nil {
		u.Email = before.Email
	}
	if update.Bio != nil {
		u.Bio = before.Bio
	}
	if update.ProfilePicture != nil {
		u.ProfilePicture = before.ProfilePicture
	}
}

// mutate applies fn to the stored user. fn returns the function that reverts it.
func (r *memoryUserRepository) mutate(ctx context.Context, id string, fn func(*models.User) func(*models.User)) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	user, err := r.get(id)
	if err != nil {
		return err
	}
	undo := fn(user)
	userID := user.ID
	r.state.journal(ctx, func() {
		if u, ok := r.state.users[userID]; ok {
			undo(u)
		}
	})
	return nil
}

func (r *memoryUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.mutate(ctx, id, func(u *models.User) func(*models.User) {
		old := u.Password
		u.Password = passwordHash
		return func(u *models.User) { u.Password = old }
	})
}

func (r *memoryUserRepository) UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) error {
	return r.mutate(ctx, id, func(u *models.User) func(*models.User) {
		old := u.Preferences
		u.Preferences = prefs
		return func(u *models.User) { u.Preferences = old }
	})
}

func (r *memoryUserRepository) SetFirebaseUID(ctx context.Context, id, firebaseUID string) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	user, err := r.get(id)
	if err != nil {
		return err
	}
	if r.uniqueViolation(user.ID, "", "", firebaseUID) {
		return apperror.Conflict("User already exists")
	}
	old, userID := user.FirebaseUID, user.ID
	user.FirebaseUID = firebaseUID
	r.state.journal(ctx, func() {
		if u, ok := r.state.users[userID]; ok {
			u.FirebaseUID = old
		}
	})
	return nil
}

// editSet applies one conditional add or remove to a user's id set.
func (r *memoryUserRepository) editSet(ctx context.Context, id, member string, field func(*models.User) *[]primitive.ObjectID, add bool) (bool, error) {
	memberID, err := parseObjectID(member, "User")
	if err != nil {
		return false, err
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	user, err := r.get(id)
	if err != nil {
		return false, err
	}
	set := field(user)
	present := containsObjectID(*set, memberID)
	if add == present {
		return false, nil
	}
	*set = toggleID(*set, memberID, add)
	userID := user.ID
	r.state.journal(ctx, func() {
		if u, ok := r.state.users[userID]; ok {
			set := field(u)
			*set = toggleID(*set, memberID, !add)
		}
	})
	return true, nil
}

// toggleID adds or removes id, keeping set semantics.
func toggleID(ids []primitive.ObjectID, id primitive.ObjectID, add bool) []primitive.ObjectID {
	if !add {
		return removeID(ids, id)
	}
	if containsObjectID(ids, id) {
		return ids
	}
	return append(ids, id)
}

func containsObjectID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func followingOf(u *models.User) *[]primitive.ObjectID { return &u.Following }
func followersOf(u *models.User) *[]primitive.ObjectID { return &u.Followers }

func (r *memoryUserRepository) AddFollowing(ctx context.Context, userID, targetID string) (bool, error) {
	return r.editSet(ctx, userID, targetID, followingOf, true)
}

func (r *memoryUserRepository) RemoveFollowing(ctx context.Context, userID, targetID string) (bool, error) {
	return r.editSet(ctx, userID, targetID, followingOf, false)
}

func (r *memoryUserRepository) AddFollower(ctx context.Context, userID, followerID string) (bool, error) {
	return r.editSet(ctx, userID, followerID, followersOf, true)
}

func (r *memoryUserRepository) RemoveFollower(ctx context.Context, userID, followerID string) (bool, error) {
	return r.editSet(ctx, userID, followerID, followersOf, false)
}

func (r *memoryUserRepository) PullFromAllEdges(ctx context.Context, userID string) error {
	objID, err := parseObjectID(userID, "User")
	if err != nil {
		return err
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, u := range r.state.users {
		hadFollower, hadFollowing := containsObjectID(u.Followers, objID), containsObjectID(u.Following, objID)
		if !hadFollower && !hadFollowing {
			continue
		}
		u.Followers = removeID(u.Followers, objID)
		u.Following = removeID(u.Following, objID)
		userID := u.ID
		r.state.journal(ctx, func() {
			if u, ok := r.state.users[userID]; ok {
				if hadFollower {
					u.Followers = toggleID(u.Followers, objID, true)
				}
				if hadFollowing {
					u.Following = toggleID(u.Following, objID, true)
				}
			}
		})
	}
	return nil
}

func (r *memoryUserRepository) DeleteUser(ctx context.Context, id string) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	user, err := r.get(id)
	if err != nil {
		return err
	}
	delete(r.state.users, user.ID)
	r.state.journal(ctx, func() {
		if _, taken := r.state.users[user.ID]; !taken {
			r.state.users[user.ID] = user
		}
	})
	return nil
}

type memoryStoryRepository struct {
	state *memoryState
}

func (r *memoryStoryRepository) CreateStory(ctx context.Context, story *models.Story) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	story.ID = primitive.NewObjectID()
	now := time.Now()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = now
	}
	story.UpdatedAt = now
	if story.Likes == nil {
		story.Likes = []primitive.ObjectID{}
	}
	r.state.stories[story.ID] = copyStory(story)
	id := story.ID
	r.state.journal(ctx, func() { delete(r.state.stories, id) })
	return nil
}

func (r *memoryStoryRepository) get(id string) (*models.Story, error) {
	objID, err := parseObjectID(id, "Story")
	if err != nil {
		return nil, err
	}
	story, ok := r.state.stories[objID]
	if !ok {
		return nil, apperror.NotFound("Story not found")
	}
	return story, nil
}

func (r *memoryStoryRepository) GetStoryByID(ctx context.Context, id string) (*models.Story, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	story, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return copyStory(story), nil
}

func (r *memoryStoryRepository) list(match func(*models.Story) bool) []models.Story {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	stories := []models.Story{}
	for _, st := range r.state.stories {
		if match(st) {
			stories = append(stories, *copyStory(st))
		}
	}
	sort.Slice(stories, func(i, j int) bool {
		if !stories[i].CreatedAt.Equal(stories[j].CreatedAt) {
			return stories[i].CreatedAt.After(stories[j].CreatedAt)
		}
		return stories[i].ID.Hex() > stories[j].ID.Hex()
	})
	return stories
}

func (r *memoryStoryRepository) ListPublished(ctx context.Context, category string) ([]models.Story, error) {
	return r.list(func(st *models.Story) bool {
		return st.IsPublished && (category == "" || st.Category == category)
	}), nil
}

func (r *memoryStoryRepository) ListByAuthor(ctx context.Context, authorID string, includeDrafts bool) ([]models.Story, error) {
	objID, err := parseObjectID(authorID, "User")
	if err != nil {
		return nil, err
	}
	return r.list(func(st *models.Story) bool {
		return st.Author == objID && (includeDrafts || st.IsPublished)
	}), nil
}

func (r *memoryStoryRepository) UpdateStory(ctx context.Context, id string, update StoryUpdate) (*models.Story, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	story, err := r.get(id)
	if err != nil {
		return nil, err
	}
	before := copyStory(story)
	r.state.journal(ctx, func() {
		if st, ok := r.state.stories[before.ID]; ok {
			restoreStory(st, before, update)
		}
	})
	if update.Title != nil {
		story.Title = *update.Title
	}
	if update.Description != nil {
		story.Description = *update.Description
	}
	if update.Category != nil {
		story.Category = *update.Category
	}
	if update.Tags != nil {
		story.Tags = append([]string(nil), update.Tags...)
	}
	if update.CoverImage != nil {
		story.CoverImage = *update.CoverImage
	}
	if update.Status != nil {
		story.Status = *update.Status
	}
	if update.IsPublished != nil {
		story.IsPublished = *update.IsPublished
	}
	story.UpdatedAt = update.UpdatedAt
	return copyStory(story), nil
}

// restoreStory puts back the fields update changed.
func restoreStory(st, before *models.Story, update StoryUpdate) {
	if update.Title != nil {
		st.Title = before.Title
	}
	if update.Description != nil {
		st.Description = before.Description
	}
	if update.Category != nil {
		st.Category = before.Category
	}
	if update.Tags != nil {
		st.Tags = before.Tags
	}
	if update.CoverImage != nil {
		st.CoverImage = before.CoverImage
	}
	if update.Status != nil {
		st.Status = before.Status
	}
	if update.IsPublished != nil {
		st.IsPublished = before.IsPublished
	}
	st.UpdatedAt = before.UpdatedAt
}

func (r *memoryStoryRepository) DeleteStory(ctx context.Context, id string) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	story, err := r.get(id)
	if err != nil {
		return err
	}
	delete(r.state.stories, story.ID)
	r.state.journal(ctx, func() {
		if _, taken := r.state.stories[story.ID]; !taken {
			r.state.stories[story.ID] = story
		}
	})
	return nil
}

func (r *memoryStoryRepository) editLikes(ctx context.Context, storyID, userID string, add bool) (*models.Story, bool, error) {
	userObjID, err := parseObjectID(userID, "User")
	if err != nil {
		return nil, false, err
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	story, err := r.get(storyID)
	if err != nil {
		return nil, false, err
	}
	if containsObjectID(story.Likes, userObjID) == add {
		return copyStory(story), false, nil
	}
	story.Likes = toggleID(story.Likes, userObjID, add)
	storyObjID := story.ID
	r.state.journal(ctx, func() {
		if st, ok := r.state.stories[storyObjID]; ok {
			st.Likes = toggleID(st.Likes, userObjID, !add)
		}
	})
	return copyStory(story), true, nil
}

func (r *memoryStoryRepository) AddLike(ctx context.Context, storyID, userID string) (*models.Story, bool, error) {
	return r.editLikes(ctx, storyID, userID, true)
}

func (r *memoryStoryRepository) RemoveLike(ctx context.Context, storyID, userID string) (*models.Story, bool, error) {
	return r.editLikes(ctx, storyID, userID, false)
}

func (r *memoryStoryRepository) PullLikesBy(ctx context.Context, userID string) error {
	objID, err := parseObjectID(userID, "User")
	if err != nil {
		return err
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, st := range r.state.stories {
		if !containsObjectID(st.Likes, objID) {
			continue
		}
		st.Likes = removeID(st.Likes, objID)
		storyID := st.ID
		r.state.journal(ctx, func() {
			if st, ok := r.state.stories[storyID]; ok {
				st.Likes = toggleID(st.Likes, objID, true)
			}
		})
	}
	return nil
}

func (r *memoryStoryRepository) IncrementReads(ctx context.Context, id string) (int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	story, err := r.get(id)
	if err != nil {
		return 0, err
	}
	story.Reads++
	storyID := story.ID
	r.state.journal(ctx, func() {
		if st, ok := r.state.stories[storyID]; ok {
			st.Reads--
		}
	})
	return story.Reads, nil
}

type memoryChapterRepository struct {
	state *memoryState
}

func (r *memoryChapterRepository) CreateChapters(ctx context.Context, chapters []*models.Chapter) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, chapter := range chapters {
		r.insertLocked(ctx, chapter)
	}
	return nil
}

// insertLocked stamps and stores a copy of chapter. Caller holds mu.
func (r *memoryChapterRepository) insertLocked(ctx context.Context, chapter *models.Chapter) {
	stampChapter(chapter)
	c := *chapter
	r.state.chapters[chapter.ID] = &c
	id := chapter.ID
	r.state.journal(ctx, func() { delete(r.state.chapters, id) })
}

func (r *memoryChapterRepository) countLocked(storyID primitive.ObjectID) int64 {
	var count int64
	for _, ch := range r.state.chapters {
		if ch.Story == storyID {
			count++
		}
	}
	return count
}

// lastNumberLocked returns the highest chapter number in a story. Caller holds mu.
func (r *memoryChapterRepository) lastNumberLocked(storyID primitive.ObjectID) int {
	last := 0
	for _, ch := range r.state.chapters {
		if ch.Story == storyID && ch.ChapterNumber > last {
			last = ch.ChapterNumber
		}
	}
	return last
}

func (r *memoryChapterRepository) AppendChapter(ctx context.Context, chapter *models.Chapter) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	chapter.AssignNumber(r.lastNumberLocked(chapter.Story) + 1)
	r.insertLocked(ctx, chapter)
	return nil
}

func (r *memoryChapterRepository) get(id string) (*models.Chapter, error) {
	objID, err := parseObjectID(id, "Chapter")
	if err != nil {
		return nil, err
	}
	chapter, ok := r.state.chapters[objID]
	if !ok {
		return nil, apperror.NotFound("Chapter not found")
	}
	return chapter, nil
}

func (r *memoryChapterRepository) GetChapterByID(ctx context.Context, id string) (*models.Chapter, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	chapter, err := r.get(id)
	if err != nil {
		return nil, err
	}
	c := *chapter
	return &c, nil
}

func (r *memoryChapterRepository) ListByStory(ctx context.Context, storyID string) ([]models.Chapter, error) {
	objID, err := parseObjectID(storyID, "Story")
	if err != nil {
		return nil, err
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	chapters := []models.Chapter{}
	for _, ch := range r.state.chapters {
		if ch.Story == objID {
			chapters = append(chapters, *ch)
		}
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].ChapterNumber < chapters[j].ChapterNumber })
	return chapters, nil
}

func (r *memoryChapterRepository) CountByStory(ctx context.Context, storyID string) (int64, error) {
	objID, err := parseObjectID(storyID, "Story")
	if err != nil {
		return 0, err
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	return r.countLocked(objID), nil
}

func (r *memoryChapterRepository) UpdateChapter(ctx context.Context, id string, update ChapterUpdate) (*models.Chapter, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	chapter, err := r.get(id)
	if err != nil {
		return nil, err
	}
	before := *chapter
	r.state.journal(ctx, func() {
		if ch, ok := r.state.chapters[before.ID]; ok {
			restoreChapter(ch, &before, update)
		}
	})
	if update.Title != nil {
		chapter.Title = *update.Title
	}
	if update.Content != nil {
		chapter.Content = *update.Content
	}
	if update.Notes != nil {
		chapter.Notes = *update.Notes
	}
	chapter.UpdatedAt = update.UpdatedAt
	c := *chapter
	return &c, nil
}

func restoreChapter(ch, before *models.Chapter, update ChapterUpdate) {
	if update.Title != nil {
		ch.Title = before.Title
	}
	if update.Content != nil {
		ch.Content = before.Content
	}
	if update.Notes != nil {
		ch.Notes = before.Notes
	}
	ch.UpdatedAt = before.UpdatedAt
}

// reinsertChapterLocked is the undo of a chapter delete. Caller holds mu.
func (r *memoryChapterRepository) reinsertChapterLocked(ctx context.Context, chapter *models.Chapter) {
	r.state.journal(ctx, func() {
		if _, taken := r.state.chapters[chapter.ID]; !taken {
			r.state.chapters[chapter.ID] = chapter
		}
	})
}

func (r *memoryChapterRepository) DeleteChapter(ctx context.Context, id string) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	chapter, err := r.get(id)
	if err != nil {
		return err
	}
	delete(r.state.chapters, chapter.ID)
	r.reinsertChapterLocked(ctx, chapter)
	return nil
}

func (r *memoryChapterRepository) DeleteByStory(ctx context.Context, storyID string) (int64, error) {
	objID, err := parseObjectID(storyID, "Story")
	if err != nil {
		return 0, err
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var deleted int64
	for id, ch := range r.state.chapters {
		if ch.Story == objID {
			delete(r.state.chapters, id)
			r.reinsertChapterLocked(ctx, ch)
			deleted++
		}
	}
	return deleted, nil
}

type memoryBookmarkRepository struct {
	state *memoryState
}

func (r *memoryBookmarkRepository) CreateBookmark(ctx context.Context, bookmark *models.Bookmark) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	key := bookmarkKey{bookmark.UserID, bookmark.StoryID}
	if _, exists := r.state.bookmarks[key]; exists {
		return apperror.Conflict("Bookmark already exists")
	}
	bookmark.ID = r.state.newSequence()
	if bookmark.CreatedAt.IsZero() {
		bookmark.CreatedAt = time.Now()
	}
	c := *bookmark
	r.state.bookmarks[key] = &c
	r.state.journal(ctx, func() { delete(r.state.bookmarks, key) })
	return nil
}

func (r *memoryBookmarkRepository) DeleteBookmark(ctx context.Context, userID, storyID string) (bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	key := bookmarkKey{userID, storyID}
	bookmark, exists := r.state.bookmarks[key]
	if !exists {
		return false, nil
	}
	delete(r.state.bookmarks, key)
	r.reinsertLocked(ctx, key, bookmark)
	return true, nil
}

func (r *memoryBookmarkRepository) IsBookmarked(ctx context.Context, userID, storyID string) (bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	_, exists := r.state.bookmarks[bookmarkKey{userID, storyID}]
	return exists, nil
}

func (r *memoryBookmarkRepository) ListByUser(ctx context.Context, userID string) ([]models.Bookmark, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	bookmarks := []models.Bookmark{}
	for key, b := range r.state.bookmarks {
		if key.userID == userID {
			bookmarks = append(bookmarks, *b)
		}
	}
	sort.Slice(bookmarks, func(i, j int) bool {
		if !bookmarks[i].CreatedAt.Equal(bookmarks[j].CreatedAt) {
			return bookmarks[i].CreatedAt.After(bookmarks[j].CreatedAt)
		}
		return bookmarks[i].ID > bookmarks[j].ID
	})
	return bookmarks, nil
}

func (r *memoryBookmarkRepository) BookmarkedStoryIDs(ctx context.Context, userID string, storyIDs []string) (map[string]bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	result := make(map[string]bool)
	for _, storyID := range storyIDs {
		if _, exists := r.state.bookmarks[bookmarkKey{userID, storyID}]; exists {
			result[storyID] = true
		}
	}
	return result, nil
}

// reinsertLocked is the undo of a bookmark delete. A bookmark re-created
// since then wins. Caller holds mu.
func (r *memoryBookmarkRepository) reinsertLocked(ctx context.Context, key bookmarkKey, bookmark *models.Bookmark) {
	r.state.journal(ctx, func() {
		if _, taken := r.state.bookmarks[key]; !taken {
			r.state.bookmarks[key] = bookmark
		}
	})
}

func (r *memoryBookmarkRepository) deleteWhere(ctx context.Context, match func(bookmarkKey) bool) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for key, bookmark := range r.state.bookmarks {
		if match(key) {
			delete(r.state.bookmarks, key)
			r.reinsertLocked(ctx, key, bookmark)
		}
	}
}

func (r *memoryBookmarkRepository) DeleteByStory(ctx context.Context, storyID string) error {
	r.deleteWhere(ctx, func(k bookmarkKey) bool { return k.storyID == storyID })
	return nil
}

func (r *memoryBookmarkRepository) DeleteByUser(ctx context.Context, userID string) error {
	r.deleteWhere(ctx, func(k bookmarkKey) bool { return k.userID == userID })
	return nil
}

type memoryNotificationRepository struct {
	state *memoryState
}

func (r *memoryNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	notification.ID = r.state.newSequence()
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	c := *notification
	r.state.notifications[notification.ID] = &c
	id := notification.ID
	r.state.journal(ctx, func() { delete(r.state.notifications, id) })
	return nil
}

func (r *memoryNotificationRepository) GetByRecipientID(ctx context.Context, recipientID string, page, limit int, unreadOnly bool) ([]models.Notification, int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	matched := []models.Notification{}
	for _, n := range r.state.notifications {
		if n.RecipientID == recipientID && (!unreadOnly || !n.IsRead) {
			matched = append(matched, *n)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	total := int64(len(matched))
	start := (page - 1) * limit
	if start >= len(matched) {
		return []models.Notification{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *memoryNotificationRepository) GetUnreadCount(ctx context.Context, recipientID string) (int64, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var count int64
	for _, n := range r.state.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *memoryNotificationRepository) owned(recipientID string, id uint) (*models.Notification, error) {
	n, ok := r.state.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return nil, apperror.NotFound("Notification not found")
	}
	return n, nil
}

func (r *memoryNotificationRepository) MarkAsRead(ctx context.Context, recipientID string, notificationID uint) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	n, err := r.owned(recipientID, notificationID)
	if err != nil {
		return err
	}
	r.markReadLocked(ctx, n)
	return nil
}

func (r *memoryNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID string) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, n := range r.state.notifications {
		if n.RecipientID == recipientID {
			r.markReadLocked(ctx, n)
		}
	}
	return nil
}

// markReadLocked flags n read, journaling the flip. Caller holds mu.
func (r *memoryNotificationRepository) markReadLocked(ctx context.Context, n *models.Notification) {
	if n.IsRead {
		return
	}
	n.IsRead = true
	r.state.journal(ctx, func() { n.IsRead = false })
}

// deleteLocked removes n, journaling its reinsertion. Caller holds mu.
func (r *memoryNotificationRepository) deleteLocked(ctx context.Context, n *models.Notification) {
	delete(r.state.notifications, n.ID)
	r.state.journal(ctx, func() { r.state.notifications[n.ID] = n })
}

func (r *memoryNotificationRepository) DeleteNotification(ctx context.Context, recipientID string, notificationID uint) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	n, err := r.owned(recipientID, notificationID)
	if err != nil {
		return err
	}
	r.deleteLocked(ctx, n)
	return nil
}

func (r *memoryNotificationRepository) DeleteByUser(ctx context.Context, userID string) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, n := range r.state.notifications {
		if n.RecipientID == userID || n.SenderID == userID {
			r.deleteLocked(ctx, n)
		}
	}
	return nil
}

type memoryCommentRepository struct {
	state *memoryState
}

func (r *memoryCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	comment.ID = r.state.newSequence()
	now := time.Now()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now
	}
	comment.UpdatedAt = now
	c := *comment
	r.state.comments[comment.ID] = &c
	id := comment.ID
	r.state.journal(ctx, func() { delete(r.state.comments, id) })
	return nil
}

func (r *memoryCommentRepository) GetCommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	comment, ok := r.state.comments[id]
	if !ok {
		return nil, apperror.NotFound("Comment not found")
	}
	c := *comment
	return &c, nil
}

func (r *memoryCommentRepository) ListByStory(ctx context.Context, storyID string) ([]models.Comment, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	comments := []models.Comment{}
	for _, c := range r.state.comments {
		if c.StoryID == storyID {
			comments = append(comments, *c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})
	return comments, nil
}

func (r *memoryCommentRepository) DeleteComment(ctx context.Context, id uint) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	comment, ok := r.state.comments[id]
	if !ok {
		return apperror.NotFound("Comment not found")
	}
	r.deleteLocked(ctx, comment)
	return nil
}

// deleteLocked removes c, journaling its reinsertion. Caller holds mu.
func (r *memoryCommentRepository) deleteLocked(ctx context.Context, c *models.Comment) {
	delete(r.state.comments, c.ID)
	r.state.journal(ctx, func() { r.state.comments[c.ID] = c })
}

func (r *memoryCommentRepository) deleteWhere(ctx context.Context, match func(*models.Comment) bool) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, c := range r.state.comments {
		if match(c) {
			r.deleteLocked(ctx, c)
		}
	}
}

func (r *memoryCommentRepository) DeleteByStory(ctx context.Context, storyID string) error {
	r.deleteWhere(ctx, func(c *models.Comment) bool { return c.StoryID == storyID })
	return nil
}

func (r *memoryCommentRepository) DeleteByUser(ctx context.Context, userID string) error {
	r.deleteWhere(ctx, func(c *models.Comment) bool { return c.UserID == userID })
	return nil
}
