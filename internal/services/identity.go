package services

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"pitchfeed/internal/db"
	"pitchfeed/internal/models"
	"pitchfeed/internal/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{2,50}$`)

// IdentityService owns user records and the follow graph. It never touches
// reputation counters.
type IdentityService struct {
	store    db.Store
	notifier *NotificationService
	now      func() time.Time
}

func NewIdentityService(store db.Store, notifier *NotificationService) *IdentityService {
	return &IdentityService{store: store, notifier: notifier, now: time.Now}
}

// NewUser is the registration input.
type NewUser struct {
	Handle       string `json:"handle"`
	DisplayName  string `json:"display_name"`
	Bio          string `json:"bio"`
	ProfileImage string `json:"profile_image"`
}

// Profile is a user plus the values derived from their counters.
type Profile struct {
	*models.User
	Karma          int             `json:"karma"`
	Tier           utils.Tier      `json:"tier"`
	NextTier       *utils.NextTier `json:"next_tier,omitempty"`
	FollowerCount  int             `json:"follower_count"`
	FollowingCount int             `json:"following_count"`
	DaysSinceJoin  int             `json:"days_since_join"`
}

func (s *IdentityService) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	handle := strings.TrimSpace(in.Handle)
	if !handlePattern.MatchString(handle) {
		return nil, invalidInput("handle must be 2-50 letters, digits or underscores")
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = handle
	}
	if utf8.RuneCountInString(displayName) > 100 {
		return nil, invalidInput("display name is longer than 100 characters")
	}
	if utf8.RuneCountInString(in.Bio) > 200 {
		return nil, invalidInput("bio is longer than 200 characters")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Handle:       handle,
		DisplayName:  displayName,
		Bio:          strings.TrimSpace(in.Bio),
		ProfileImage: strings.TrimSpace(in.ProfileImage),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, translate(err)
	}
	log.Info().Str("user", user.ID).Str("handle", handle).Msg("user created")
	return user, nil
}

func (s *IdentityService) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	return u, translate(err)
}

func (s *IdentityService) Profile(ctx context.Context, id string) (*Profile, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	followers, err := s.store.FollowerIDs(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	following, err := s.store.FollowingIDs(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return &Profile{
		User:           u,
		Karma:          u.Karma(),
		Tier:           utils.GetUserTier(u.Karma()),
		NextTier:       utils.GetNextTier(u.Karma()),
		FollowerCount:  len(followers),
		FollowingCount: len(following),
		DaysSinceJoin:  utils.GetDaysSinceJoined(u.CreatedAt, s.now()),
	}, nil
}

// Follow adds the edge followerID -> followeeID.
func (s *IdentityService) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return invalidInput("users cannot follow themselves")
	}
	if err := s.store.Follow(ctx, followerID, followeeID); err != nil {
		return translate(err)
	}
	s.notifier.Notify(&models.Notification{
		UserID:   followeeID,
		ActorID:  followerID,
		Type:     models.NotificationFollow,
		TargetID: followerID,
	})
	return nil
}

func (s *IdentityService) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return translate(s.store.Unfollow(ctx, followerID, followeeID))
}

func (s *IdentityService) Followers(ctx context.Context, userID string) ([]*models.User, error) {
	return s.listUsers(ctx, userID, s.store.FollowerIDs)
}

func (s *IdentityService) Following(ctx context.Context, userID string) ([]*models.User, error) {
	return s.listUsers(ctx, userID, s.store.FollowingIDs)
}

func (s *IdentityService) listUsers(ctx context.Context, userID string, ids func(context.Context, string) ([]string, error)) ([]*models.User, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, translate(err)
	}
	list, err := ids(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	users, err := s.store.GetUsers(ctx, list)
	return users, translate(err)
}
