package services

import (
	"context"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/anonto42/storyhive/backend/internal/apperror"
	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/anonto42/storyhive/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// FederatedIdentity is what an external identity provider vouches for.
type FederatedIdentity struct {
	UID     string
	Email   string
	Name    string
	Picture string
}

// IdentityVerifier checks an external ID token.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*FederatedIdentity, error)
}

// AvatarStore persists uploaded images and returns their URL.
type AvatarStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, url string) error
}

// AuthResult is returned by every login flow.
type AuthResult struct {
	Token string          `json:"token"`
	User  *models.Profile `json:"user"`
}

var usernameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// AccountService handles signup, login and profile maintenance.
type AccountService struct {
	store    *repositories.Store
	tokens   *TokenManager
	verifier IdentityVerifier
	avatars  AvatarStore
	log      logrus.FieldLogger
	cost     int
}

// NewAccountService wires the service. verifier and avatars may be nil, which
// disables federated login and avatar uploads.
func NewAccountService(store *repositories.Store, tokens *TokenManager, verifier IdentityVerifier, avatars AvatarStore, log logrus.FieldLogger) *AccountService {
	return &AccountService{
		store:    store,
		tokens:   tokens,
		verifier: verifier,
		avatars:  avatars,
		log:      log,
		cost:     bcrypt.DefaultCost,
	}
}

func (s *AccountService) Register(ctx context.Context, req models.RegisterRequest) (*AuthResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:    strings.TrimSpace(req.Username),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Password:    string(hash),
		Preferences: models.DefaultPreferences(),
	}
	if err := s.store.Users.CreateUser(ctx, user); err != nil {
		if apperror.Is(err, apperror.KindConflict) {
			return nil, apperror.Conflict("Username or email already taken")
		}
		return nil, err
	}
	return s.authResult(ctx, user)
}

// SignIn checks email and password. Unknown email and wrong password fail the same way.
func (s *AccountService) SignIn(ctx context.Context, req models.SignInRequest) (*AuthResult, error) {
	user, err := s.store.Users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if apperror.Is(err, apperror.KindNotFound) {
		return nil, apperror.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, apperror.Unauthorized("Invalid credentials")
	}
	return s.authResult(ctx, user)
}

// FirebaseLogin exchanges a verified federated ID token for a local token,
// linking an existing account by email or creating one on first login.
func (s *AccountService) FirebaseLogin(ctx context.Context, idToken string) (*AuthResult, error) {
	if s.verifier == nil {
		return nil, apperror.InvalidOperation("Federated login is not configured")
	}
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		s.log.WithError(err).Debug("federated token rejected")
		return nil, apperror.Unauthorized("Invalid ID token")
	}

	user, err := s.store.Users.GetUserByFirebaseUID(ctx, identity.UID)
	if err == nil {
		return s.authResult(ctx, user)
	}
	if !apperror.Is(err, apperror.KindNotFound) {
		return nil, err
	}

	email := strings.ToLower(identity.Email)
	if email != "" {
		user, err = s.store.Users.GetUserByEmail(ctx, email)
		if err == nil {
			if err := s.store.Users.SetFirebaseUID(ctx, user.ID.Hex(), identity.UID); err != nil {
				return nil, err
			}
			user.FirebaseUID = identity.UID
			return s.authResult(ctx, user)
		}
		if !apperror.Is(err, apperror.KindNotFound) {
			return nil, err
		}
	}

	user = &models.User{
		Username:       federatedUsername(identity),
		Email:          email,
		FirebaseUID:    identity.UID,
		ProfilePicture: identity.Picture,
		Preferences:    models.DefaultPreferences(),
	}
	if err := s.store.Users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return s.authResult(ctx, user)
}

func federatedUsername(identity *FederatedIdentity) string {
	base := identity.Name
	if base == "" {
		base, _, _ = strings.Cut(identity.Email, "@")
	}
	base = strings.Trim(usernameUnsafe.ReplaceAllString(base, "_"), "_")
	if base == "" {
		base = "reader"
	}
	if len(base) > 20 {
		base = base[:20]
	}
	return base + "_" + uuid.NewString()[:8]
}

func (s *AccountService) authResult(ctx context.Context, user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: s.profile(ctx, user, true)}, nil
}

// GetProfile returns userID's profile. Email and preferences are only shown
// to the user themself.
func (s *AccountService) GetProfile(ctx context.Context, viewerID, userID string) (*models.Profile, error) {
	user, err := s.store.Users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, user, viewerID == userID), nil
}

func (s *AccountService) profile(ctx context.Context, user *models.User, self bool) *models.Profile {
	profile := &models.Profile{
		ID:             user.ID.Hex(),
		Username:       user.Username,
		ProfilePicture: user.ProfilePicture,
		Bio:            user.Bio,
		JoinedDate:     user.JoinedDate,
		Followers:      summariesOf(ctx, s.store.Users, user.Followers, s.log),
		Following:      summariesOf(ctx, s.store.Users, user.Following, s.log),
		FollowersCount: len(user.Followers),
		FollowingCount: len(user.Following),
	}
	if self {
		prefs := user.Preferences
		profile.Email = user.Email
		profile.Preferences = &prefs
	}
	return profile
}

// GetFollowing returns the cards of the users actorID follows.
func (s *AccountService) GetFollowing(ctx context.Context, actorID string) ([]models.UserSummary, error) {
	user, err := s.store.Users.GetUserByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return summariesOf(ctx, s.store.Users, user.Following, s.log), nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, actorID string, req models.UpdateProfileRequest) (*models.Profile, error) {
	update := repositories.ProfileUpdate{
		Username:       nonEmpty(strings.TrimSpace(req.Username)),
		Email:          nonEmpty(strings.ToLower(strings.TrimSpace(req.Email))),
		Bio:            nonEmpty(req.Bio),
		ProfilePicture: nonEmpty(req.ProfilePicture),
	}
	user, err := s.store.Users.UpdateProfile(ctx, actorID, update)
	if apperror.Is(err, apperror.KindConflict) {
		return nil, apperror.Conflict("Username or email already taken")
	}
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, user, true), nil
}

func (s *AccountService) UpdatePassword(ctx context.Context, actorID string, req models.UpdatePasswordRequest) error {
	user, err := s.store.Users.GetUserByID(ctx, actorID)
	if err != nil {
		return err
	}
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)) != nil {
		return apperror.InvalidOperation("Current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cost)
	if err != nil {
		return err
	}
	return s.store.Users.UpdatePassword(ctx, actorID, string(hash))
}

// UploadAvatar stores a new avatar and points the profile at it. The previous
// avatar object is removed best-effort.
func (s *AccountService) UploadAvatar(ctx context.Context, actorID, filename string, r io.Reader, size int64, contentType string) (*models.Profile, error) {
	if s.avatars == nil {
		return nil, apperror.InvalidOperation("Avatar uploads are not configured")
	}
	user, err := s.store.Users.GetUserByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	key := "avatars/" + actorID + "/" + uuid.NewString() + strings.ToLower(path.Ext(filename))
	url, err := s.avatars.Put(ctx, key, r, size, contentType)
	if err != nil {
		return nil, apperror.StorageUnavailable(err, "Failed to upload avatar")
	}
	updated, err := s.store.Users.UpdateProfile(ctx, actorID, repositories.ProfileUpdate{ProfilePicture: &url})
	if err != nil {
		return nil, err
	}
	s.removeAvatar(ctx, user.ProfilePicture)
	return s.profile(ctx, updated, true), nil
}

func (s *AccountService) RemoveAvatar(ctx context.Context, actorID string) (*models.Profile, error) {
	user, err := s.store.Users.GetUserByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	empty := ""
	updated, err := s.store.Users.UpdateProfile(ctx, actorID, repositories.ProfileUpdate{ProfilePicture: &empty})
	if err != nil {
		return nil, err
	}
	s.removeAvatar(ctx, user.ProfilePicture)
	return s.profile(ctx, updated, true), nil
}

func (s *AccountService) removeAvatar(ctx context.Context, url string) {
	if s.avatars == nil || url == "" {
		return
	}
	if err := s.avatars.Remove(ctx, url); err != nil {
		s.log.WithError(err).WithField("url", url).Warn("old avatar not removed")
	}
}

// UpdatePreferences applies the switches present in req.
func (s *AccountService) UpdatePreferences(ctx context.Context, actorID string, req models.UpdatePreferencesRequest) (models.Preferences, error) {
	user, err := s.store.Users.GetUserByID(ctx, actorID)
	if err != nil {
		return models.Preferences{}, err
	}
	prefs := user.Preferences
	if req.EmailNotifications != nil {
		prefs.EmailNotifications = *req.EmailNotifications
	}
	if req.PushNotifications != nil {
		prefs.PushNotifications = *req.PushNotifications
	}
	if req.PublicProfile != nil {
		prefs.PublicProfile = *req.PublicProfile
	}
	if req.ShowReadingActivity != nil {
		prefs.ShowReadingActivity = *req.ShowReadingActivity
	}
	if err := s.store.Users.UpdatePreferences(ctx, actorID, prefs); err != nil {
		return models.Preferences{}, err
	}
	return prefs, nil
}

// DeleteAccount removes the user's stories with their chapters, the user's
// follow edges and likes, and the user, in one transaction. Relational rows
// owned by the user are removed afterwards.
func (s *AccountService) DeleteAccount(ctx context.Context, actorID string) error {
	user, err := s.store.Users.GetUserByID(ctx, actorID)
	if err != nil {
		return err
	}
	stories, err := s.store.Stories.ListByAuthor(ctx, actorID, true)
	if err != nil {
		return err
	}

	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		for _, story := range stories {
			if _, err := s.store.Chapters.DeleteByStory(ctx, story.ID.Hex()); err != nil {
				return err
			}
			if err := s.store.Stories.DeleteStory(ctx, story.ID.Hex()); err != nil {
				return err
			}
		}
		if err := s.store.Users.PullFromAllEdges(ctx, actorID); err != nil {
			return err
		}
		if err := s.store.Stories.PullLikesBy(ctx, actorID); err != nil {
			return err
		}
		return s.store.Users.DeleteUser(ctx, actorID)
	})
	if err != nil {
		return err
	}

	log := s.log.WithField("user", actorID)
	for _, story := range stories {
		if err := s.store.Bookmarks.DeleteByStory(ctx, story.ID.Hex()); err != nil {
			log.WithError(err).Warn("stale bookmarks left behind")
		}
		if err := s.store.Comments.DeleteByStory(ctx, story.ID.Hex()); err != nil {
			log.WithError(err).Warn("stale comments left behind")
		}
	}
	if err := s.store.Bookmarks.DeleteByUser(ctx, actorID); err != nil {
		log.WithError(err).Warn("user bookmarks left behind")
	}
	if err := s.store.Comments.DeleteByUser(ctx, actorID); err != nil {
		log.WithError(err).Warn("user comments left behind")
	}
	if err := s.store.Notifications.DeleteByUser(ctx, actorID); err != nil {
		log.WithError(err).Warn("user notifications left behind")
	}
	s.removeAvatar(ctx, user.ProfilePicture)
	return nil
}
