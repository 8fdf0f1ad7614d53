package models

import "time"

// UserSummary is the compact user card embedded in other responses
type UserSummary struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
	Bio            string `json:"bio,omitempty"`
}

// Profile is a user with populated follower/following summaries
type Profile struct {
	ID             string        `json:"id"`
	Username       string        `json:"username"`
	Email          string        `json:"email,omitempty"`
	ProfilePicture string        `json:"profilePicture"`
	Bio            string        `json:"bio"`
	JoinedDate     time.Time     `json:"joinedDate"`
	Followers      []UserSummary `json:"followers"`
	Following      []UserSummary `json:"following"`
	FollowersCount int           `json:"followersCount"`
	FollowingCount int           `json:"followingCount"`
	Preferences    *Preferences  `json:"preferences,omitempty"`
}

// FollowResult is the response of a follow toggle
type FollowResult struct {
	Following bool `json:"following"`
}

// LikeResult is the response of a like toggle
type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likesCount"`
}

// BookmarkResult is the response of a bookmark toggle
type BookmarkResult struct {
	Bookmarked bool `json:"bookmarked"`
}

// StoryView is a story joined with its author card
type StoryView struct {
	Story
	Author     UserSummary `json:"author"`
	TotalLikes int         `json:"totalLikes"`
}

// FeedStory is a published story enriched for a specific viewer
type FeedStory struct {
	ID                string      `json:"id"`
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	CoverImage        string      `json:"coverImage"`
	Category          string      `json:"category"`
	Tags              []string    `json:"tags"`
	Status            StoryStatus `json:"status"`
	Author            UserSummary `json:"author"`
	TotalLikes        int         `json:"totalLikes"`
	TotalViews        int64       `json:"totalViews"`
	CreatedAt         time.Time   `json:"createdAt"`
	IsLiked           bool        `json:"isLiked"`
	IsBookmarked      bool        `json:"isBookmarked"`
	IsFollowingAuthor bool        `json:"isFollowingAuthor"`
}

// CommentView is a comment with its author card
type CommentView struct {
	Comment
	Author UserSummary `json:"author"`
}

// NotificationView is a notification with its sender card
type NotificationView struct {
	Notification
	Sender UserSummary `json:"senderUser"`
}

// CreatedStory is the response of story creation
type CreatedStory struct {
	Story    StoryView `json:"story"`
	Chapters []Chapter `json:"chapters"`
}

// Pagination describes one page of a listing
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// NotificationList is one page of a recipient's notifications
type NotificationList struct {
	Notifications []NotificationView `json:"notifications"`
	Pagination    Pagination         `json:"pagination"`
	UnreadCount   int64              `json:"unreadCount"`
}

// ReconcileReport counts the follow edges a graph repair pass changed
type ReconcileReport struct {
	UsersChecked     int `json:"usersChecked"`
	FollowersAdded   int `json:"followersAdded"`
	FollowersRemoved int `json:"followersRemoved"`
	FollowingRemoved int `json:"followingRemoved"`
}
