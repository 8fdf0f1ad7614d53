package services

import (
	"context"
	"sort"
	"time"

	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/anonto42/storyhive/backend/internal/repositories"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeedSort selects the ordering of an assembled feed.
type FeedSort string

const (
	SortRecent   FeedSort = "recent"
	SortPopular  FeedSort = "popular"
	SortTrending FeedSort = "trending"
)

const trendingWindow = 7 * 24 * time.Hour

// ParseFeedSort maps a query value to a FeedSort, defaulting to recent.
func ParseFeedSort(value string) FeedSort {
	switch FeedSort(value) {
	case SortPopular, SortTrending:
		return FeedSort(value)
	}
	return SortRecent
}

// FeedFilter narrows and orders a feed.
type FeedFilter struct {
	Category string
	Sort     FeedSort
}

// FeedAssembler builds viewer-relative story listings.
type FeedAssembler struct {
	store *repositories.Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewFeedAssembler(store *repositories.Store, log logrus.FieldLogger) *FeedAssembler {
	return &FeedAssembler{store: store, log: log, now: time.Now}
}

// AssembleFeed returns published stories joined with their author cards. With
// a viewerID it also sets the viewer's liked, bookmarked and following flags.
// Author, viewer and bookmark lookups degrade to empty values on failure.
func (a *FeedAssembler) AssembleFeed(ctx context.Context, viewerID string, filter FeedFilter) ([]models.FeedStory, error) {
	stories, err := a.store.Stories.ListPublished(ctx, filter.Category)
	if err != nil {
		return nil, err
	}

	authorIDs := make([]string, 0, len(stories))
	storyIDs := make([]string, 0, len(stories))
	for _, story := range stories {
		authorIDs = append(authorIDs, story.Author.Hex())
		storyIDs = append(storyIDs, story.ID.Hex())
	}
	authors := summariesByID(ctx, a.store.Users, authorIDs, a.log)

	var viewer *models.User
	bookmarked := map[string]bool{}
	if viewerID != "" {
		viewer, err = a.store.Users.GetUserByID(ctx, viewerID)
		if err != nil {
			a.log.WithError(err).WithField("viewer", viewerID).Warn("viewer flags unavailable")
			viewer = nil
		}
		if viewer != nil {
			bookmarked, err = a.store.Bookmarks.BookmarkedStoryIDs(ctx, viewerID, storyIDs)
			if err != nil {
				a.log.WithError(err).WithField("viewer", viewerID).Warn("bookmark flags unavailable")
				bookmarked = map[string]bool{}
			}
		}
	}

	feed := make([]models.FeedStory, 0, len(stories))
	for i := range stories {
		story := &stories[i]
		item := models.FeedStory{
			ID:          story.ID.Hex(),
			Title:       story.Title,
			Description: story.Description,
			CoverImage:  story.CoverImage,
			Category:    story.Category,
			Tags:        story.Tags,
			Status:      story.Status,
			Author:      authors.get(story.Author.Hex()),
			TotalLikes:  len(story.Likes),
			TotalViews:  story.Reads,
			CreatedAt:   story.CreatedAt,
		}
		if viewer != nil {
			item.IsLiked = story.IsLikedBy(viewer.ID)
			item.IsBookmarked = bookmarked[item.ID]
			item.IsFollowingAuthor = viewer.IsFollowing(story.Author)
		}
		feed = append(feed, item)
	}

	SortFeed(feed, filter.Sort, a.now())
	return feed, nil
}

// IncrementReads bumps a story's read counter and returns the new value.
func (a *FeedAssembler) IncrementReads(ctx context.Context, storyID string) (int64, error) {
	return a.store.Stories.IncrementReads(ctx, storyID)
}

// SortFeed orders feed in place. Equal scores fall back to newest first,
// then to descending id, so the order is total.
func SortFeed(feed []models.FeedStory, mode FeedSort, now time.Time) {
	score := func(item models.FeedStory) float64 { return 0 }
	switch mode {
	case SortPopular:
		score = PopularityScore
	case SortTrending:
		score = func(item models.FeedStory) float64 { return TrendingScore(item, now) }
	}

	sort.SliceStable(feed, func(i, j int) bool {
		si, sj := score(feed[i]), score(feed[j])
		if si != sj {
			return si > sj
		}
		if !feed[i].CreatedAt.Equal(feed[j].CreatedAt) {
			return feed[i].CreatedAt.After(feed[j].CreatedAt)
		}
		return feed[i].ID > feed[j].ID
	})
}

// PopularityScore is likes + 0.1 × views.
func PopularityScore(item models.FeedStory) float64 {
	return float64(item.TotalLikes) + 0.1*float64(item.TotalViews)
}

// TrendingScore doubles the like count of stories created within the last week.
func TrendingScore(item models.FeedStory, now time.Time) float64 {
	likes := float64(item.TotalLikes)
	if now.Sub(item.CreatedAt) <= trendingWindow {
		return likes * 2
	}
	return likes
}

// storyViews joins stories with their author cards.
func storyViews(ctx context.Context, users repositories.UserRepository, stories []models.Story, log logrus.FieldLogger) []models.StoryView {
	authorIDs := make([]primitive.ObjectID, 0, len(stories))
	for _, story := range stories {
		authorIDs = append(authorIDs, story.Author)
	}
	authors := summariesByID(ctx, users, hexes(authorIDs), log)

	views := make([]models.StoryView, 0, len(stories))
	for _, story := range stories {
		views = append(views, models.StoryView{
			Story:      story,
			Author:     authors.get(story.Author.Hex()),
			TotalLikes: len(story.Likes),
		})
	}
	return views
}
