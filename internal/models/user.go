package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an author/reader profile stored in MongoDB. Followers and Following
// mirror each other across user documents.
type User struct {
	ID             primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Username       string               `json:"username" bson:"username"`
	Email          string               `json:"email" bson:"email,omitempty"`
	Password       string               `json:"-" bson:"password"` // bcrypt hash
	FirebaseUID    string               `json:"-" bson:"firebase_uid,omitempty"`
	ProfilePicture string               `json:"profilePicture" bson:"profile_picture"`
	Bio            string               `json:"bio" bson:"bio"`
	Followers      []primitive.ObjectID `json:"followers" bson:"followers"`
	Following      []primitive.ObjectID `json:"following" bson:"following"`
	Preferences    Preferences          `json:"preferences" bson:"preferences"`
	JoinedDate     time.Time            `json:"joinedDate" bson:"joined_date"`
}

// Preferences are per-user notification and privacy switches.
type Preferences struct {
	EmailNotifications  bool `json:"emailNotifications" bson:"email_notifications"`
	PushNotifications   bool `json:"pushNotifications" bson:"push_notifications"`
	PublicProfile       bool `json:"publicProfile" bson:"public_profile"`
	ShowReadingActivity bool `json:"showReadingActivity" bson:"show_reading_activity"`
}

// DefaultPreferences is what a freshly registered user starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		EmailNotifications:  true,
		PushNotifications:   true,
		PublicProfile:       true,
		ShowReadingActivity: true,
	}
}

// IsFollowing reports whether targetID is in u.Following.
func (u *User) IsFollowing(targetID primitive.ObjectID) bool {
	return containsID(u.Following, targetID)
}

// HasFollower reports whether followerID is in u.Followers.
func (u *User) HasFollower(followerID primitive.ObjectID) bool {
	return containsID(u.Followers, followerID)
}

// ToSummary returns the compact author card used in feeds and lists.
func (u *User) ToSummary() UserSummary {
	return UserSummary{
		ID:             u.ID.Hex(),
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
		Bio:            u.Bio,
	}
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// RegisterRequest defines the request body for local signup
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// SignInRequest defines the request body for local signin
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest defines the request body for profile updates.
// Empty fields keep their current value.
type UpdateProfileRequest struct {
	Username       string `json:"username,omitempty" validate:"omitempty,min=3,max=30"`
	Email          string `json:"email,omitempty" validate:"omitempty,email"`
	Bio            string `json:"bio,omitempty" validate:"omitempty,max=500"`
	ProfilePicture string `json:"profilePicture,omitempty" validate:"omitempty,max=2048"`
}

// UpdatePasswordRequest defines the request body for password changes
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

// UpdatePreferencesRequest uses pointers so absent fields are left untouched.
type UpdatePreferencesRequest struct {
	EmailNotifications  *bool `json:"emailNotifications,omitempty"`
	PushNotifications   *bool `json:"pushNotifications,omitempty"`
	PublicProfile       *bool `json:"publicProfile,omitempty"`
	ShowReadingActivity *bool `json:"showReadingActivity,omitempty"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
