package db

import (
	"context"
	"errors"

	"pitchfeed/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// PitchFilter narrows ListPitches. A nil AuthorIDs means every author.
type PitchFilter struct {
	AuthorIDs        []string
	ExcludeAuthorIDs []string
	Limit            int
}

// Mutation is one ledger event plus the record it creates, if any.
// Commit applies it atomically: either the event is appended and every
// counter it implies is updated, or nothing changes.
type Mutation struct {
	Event   *models.Event
	Pitch   *models.Pitch   // EventPitchCreated
	Thread  *models.Thread  // EventPitchCreated
	Comment *models.Comment // EventCommentCreated
}

// Outcome carries the post-commit state of the records a Mutation touched.
type Outcome struct {
	Event   *models.Event
	Owner   *models.User
	Pitch   *models.Pitch
	Comment *models.Comment
}

// Store is the persistence contract. Implementations return copies; callers
// may not observe later writes through a returned pointer.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUsers(ctx context.Context, ids []string) ([]*models.User, error)
	// ListUsers returns every user ordered by id.
	ListUsers(ctx context.Context) ([]*models.User, error)

	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	FollowerIDs(ctx context.Context, userID string) ([]string, error)

	GetPitch(ctx context.Context, id string) (*models.Pitch, error)
	ListPitches(ctx context.Context, filter PitchFilter) ([]*models.Pitch, error)
	GetThread(ctx context.Context, id string) (*models.Thread, error)
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	ListComments(ctx context.Context, pitchID string) ([]*models.Comment, error)

	// Commit returns ErrDuplicate when (actor, target, type) is already in
	// the ledger and ErrNotFound when a referenced record is missing.
	Commit(ctx context.Context, m Mutation, weights models.KarmaWeights) (*Outcome, error)
	ListEvents(ctx context.Context) ([]*models.Event, error)
	// Rebuild zeroes every derived counter and writes c in its place.
	Rebuild(ctx context.Context, c *Counters, weights models.KarmaWeights) error

	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID string, id uint) error
}
