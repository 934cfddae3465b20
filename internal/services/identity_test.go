package services

import (
	"testing"

	"pitchfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	f := newFixture(t)

	u, err := f.svc.Identity.CreateUser(f.ctx, NewUser{Handle: "  trader_joe ", Bio: "long only"})
	require.NoError(t, err)
	assert.Equal(t, "trader_joe", u.Handle)
	assert.Equal(t, "trader_joe", u.DisplayName)
	assert.NotEmpty(t, u.ID)

	_, err = f.svc.Identity.CreateUser(f.ctx, NewUser{Handle: "trader_joe"})
	assert.ErrorIs(t, err, ErrDuplicateEvent, "taken handles are duplicates")

	for _, bad := range []string{"", "x", "has space", "emoji🚀"} {
		_, err = f.svc.Identity.CreateUser(f.ctx, NewUser{Handle: bad})
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}

func TestFollowGraph(t *testing.T) {
	f := newFixture(t)
	a := f.user("alice")
	b := f.user("bob")
	c := f.user("carol")

	assert.ErrorIs(t, f.svc.Identity.Follow(f.ctx, a.ID, a.ID), ErrInvalidInput)
	assert.ErrorIs(t, f.svc.Identity.Follow(f.ctx, a.ID, "ghost"), ErrNotFound)

	require.NoError(t, f.svc.Identity.Follow(f.ctx, a.ID, b.ID))
	require.NoError(t, f.svc.Identity.Follow(f.ctx, c.ID, b.ID))
	assert.ErrorIs(t, f.svc.Identity.Follow(f.ctx, a.ID, b.ID), ErrDuplicateEvent)

	followers, err := f.svc.Identity.Followers(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, followers, 2)

	following, err := f.svc.Identity.Following(f.ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, b.ID, following[0].ID)

	profile, err := f.svc.Identity.Profile(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, profile.FollowerCount)
	assert.Equal(t, 0, profile.FollowingCount)
	assert.Equal(t, "bronze", profile.Tier.Name)

	require.NoError(t, f.svc.Identity.Unfollow(f.ctx, a.ID, b.ID))
	assert.ErrorIs(t, f.svc.Identity.Unfollow(f.ctx, a.ID, b.ID), ErrNotFound)

	_, err = f.svc.Identity.Followers(f.ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileTier(t *testing.T) {
	f := newFixture(t)
	u := f.user("whale")
	for i := 0; i < 10; i++ {
		f.pitch(u.ID, "AAPL")
	}
	profile, err := f.svc.Identity.Profile(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, profile.Karma)
	assert.Equal(t, "silver", profile.Tier.Name)
	assert.Equal(t, "#C0C0C0", profile.Tier.Color)
	require.NotNil(t, profile.NextTier)
	assert.Equal(t, "gold", profile.NextTier.Name)
	assert.Equal(t, 150, profile.NextTier.PointsNeeded)
}

func TestNotifications(t *testing.T) {
	f := newFixture(t)
	a := f.user("alice")
	b := f.user("bob")
	c := f.user("carol")

	require.NoError(t, f.svc.Identity.Follow(f.ctx, b.ID, a.ID))
	p := f.pitch(a.ID, "AAPL")
	_, err := f.svc.Pitches.LikePitch(f.ctx, p.ID, b.ID)
	require.NoError(t, err)
	top := f.comment(p.ID, b.ID, nil)
	f.comment(p.ID, c.ID, top)
	f.comment(p.ID, a.ID, nil) // own pitch, no notification
	_, err = f.svc.Pitches.SharePitch(f.ctx, p.ID, a.ID)
	require.NoError(t, err)

	f.svc.Notifications.Close()

	aliceInbox, err := f.svc.Notifications.List(f.ctx, a.ID, 0)
	require.NoError(t, err)
	types := make([]models.NotificationType, 0, len(aliceInbox))
	for _, n := range aliceInbox {
		assert.NotEqual(t, a.ID, n.ActorID)
		types = append(types, n.Type)
	}
	assert.ElementsMatch(t, []models.NotificationType{models.NotificationFollow, models.NotificationLike, models.NotificationComment}, types)

	bobInbox, err := f.svc.Notifications.List(f.ctx, b.ID, 0)
	require.NoError(t, err)
	require.Len(t, bobInbox, 1)
	assert.Equal(t, models.NotificationReply, bobInbox[0].Type)
	assert.False(t, bobInbox[0].IsRead)

	assert.ErrorIs(t, f.svc.Notifications.MarkRead(f.ctx, a.ID, bobInbox[0].ID), ErrNotFound)
	require.NoError(t, f.svc.Notifications.MarkRead(f.ctx, b.ID, bobInbox[0].ID))
	bobInbox, err = f.svc.Notifications.List(f.ctx, b.ID, 0)
	require.NoError(t, err)
	assert.True(t, bobInbox[0].IsRead)

	_, err = f.svc.Notifications.List(f.ctx, "ghost", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeedDemo(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.SeedDemo(f.ctx))

	events, err := f.store.ListEvents(f.ctx)
	require.NoError(t, err)
	assert.Len(t, events, 5)

	report, err := f.svc.Karma.Audit(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Drifted)
}
