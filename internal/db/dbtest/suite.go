// Package dbtest holds the behavior every db.Store must share. Store
// packages call Run from their own tests.
package dbtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pitchfeed/internal/db"
	"pitchfeed/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var weights = models.DefaultKarmaWeights

// Run exercises newStore's result. Each subtest gets a fresh store; stores
// backed by a shared database only need unique ids, which Run generates.
func Run(t *testing.T, newStore func(t *testing.T) db.Store) {
	t.Run("users and follows", func(t *testing.T) { testUsersAndFollows(t, newStore(t)) })
	t.Run("pitch lifecycle", func(t *testing.T) { testPitchLifecycle(t, newStore(t)) })
	t.Run("duplicate events", func(t *testing.T) { testDuplicateEvents(t, newStore(t)) })
	t.Run("concurrent likes", func(t *testing.T) { testConcurrentLikes(t, newStore(t)) })
	t.Run("comments", func(t *testing.T) { testComments(t, newStore(t)) })
	t.Run("rebuild", func(t *testing.T) { testRebuild(t, newStore(t)) })
	t.Run("notifications", func(t *testing.T) { testNotifications(t, newStore(t)) })
}

func newUser(t *testing.T, s db.Store) *models.User {
	t.Helper()
	id := uuid.NewString()
	u := &models.User{ID: id, Handle: "u_" + id[:8], DisplayName: "user"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func newPitch(t *testing.T, s db.Store, owner *models.User, class models.AssetClass) *models.Pitch {
	t.Helper()
	p := &models.Pitch{
		ID:     uuid.NewString(),
		UserID: owner.ID,
		Asset: models.AssetSnapshot{
			AssetID: "AAPL", Symbol: "AAPL", Name: "Apple Inc.", Class: class, Price: 180.95, CapturedAt: time.Now().UTC(),
		},
		Thesis:     "thesis",
		PitchPrice: 180.95,
		ThreadID:   uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.Commit(context.Background(), db.Mutation{
		Event:  event(owner.ID, p.ID, models.EventPitchCreated, owner.ID, p.ID, class),
		Pitch:  p,
		Thread: &models.Thread{ID: p.ThreadID, PitchID: p.ID},
	}, weights)
	require.NoError(t, err)
	return p
}

func newComment(t *testing.T, s db.Store, author *models.User, p *models.Pitch, parentID *string) (*models.Comment, error) {
	c := &models.Comment{
		ID:        uuid.NewString(),
		PitchID:   p.ID,
		UserID:    author.ID,
		ParentID:  parentID,
		Content:   "comment",
		CreatedAt: time.Now().UTC(),
	}
	out, err := s.Commit(context.Background(), db.Mutation{
		Event:   event(author.ID, c.ID, models.EventCommentCreated, author.ID, p.ID, p.Asset.Class),
		Comment: c,
	}, weights)
	if err != nil {
		return nil, err
	}
	return out.Comment, nil
}

func event(actor, target string, typ models.EventType, owner, pitch string, class models.AssetClass) *models.Event {
	return &models.Event{
		ID:        uuid.NewString(),
		ActorID:   actor,
		TargetID:  target,
		Type:      typ,
		OwnerID:   owner,
		PitchID:   pitch,
		Class:     class,
		CreatedAt: time.Now().UTC(),
	}
}

func like(s db.Store, actor *models.User, p *models.Pitch) (*db.Outcome, error) {
	return s.Commit(context.Background(), db.Mutation{
		Event: event(actor.ID, p.ID, models.EventPitchLiked, p.UserID, p.ID, p.Asset.Class),
	}, weights)
}

func testUsersAndFollows(t *testing.T, s db.Store) {
	ctx := context.Background()
	a, b := newUser(t, s), newUser(t, s)

	dup := &models.User{ID: uuid.NewString(), Handle: a.Handle}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), db.ErrDuplicate)

	_, err := s.GetUser(ctx, uuid.NewString())
	assert.ErrorIs(t, err, db.ErrNotFound)

	require.NoError(t, s.Follow(ctx, a.ID, b.ID))
	assert.ErrorIs(t, s.Follow(ctx, a.ID, b.ID), db.ErrDuplicate)
	assert.ErrorIs(t, s.Follow(ctx, a.ID, uuid.NewString()), db.ErrNotFound)

	following, err := s.FollowingIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, following)
	followers, err := s.FollowerIDs(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, followers)

	users, err := s.GetUsers(ctx, []string{a.ID, b.ID, uuid.NewString()})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	all, err := s.ListUsers(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, u := range all {
		ids = append(ids, u.ID)
	}
	assert.Contains(t, ids, a.ID)
	assert.Contains(t, ids, b.ID)
	assert.IsIncreasing(t, ids)

	require.NoError(t, s.Unfollow(ctx, a.ID, b.ID))
	assert.ErrorIs(t, s.Unfollow(ctx, a.ID, b.ID), db.ErrNotFound)
}

func testPitchLifecycle(t *testing.T, s db.Store) {
	ctx := context.Background()
	owner, fan := newUser(t, s), newUser(t, s)
	p := newPitch(t, s, owner, models.AssetCrypto)

	got, err := s.GetPitch(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssetCrypto, got.Asset.Class)
	assert.Equal(t, 180.95, got.PitchPrice)

	u, err := s.GetUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, u.TotalCryptoPitches)
	assert.Equal(t, 10, u.CryptoKarma)

	out, err := like(s, fan, p)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Pitch.LikeCount)
	assert.Equal(t, 12, out.Owner.CryptoKarma)
	assert.NotZero(t, out.Event.Seq)

	out, err = s.Commit(ctx, db.Mutation{Event: event(fan.ID, p.ID, models.EventPitchShared, owner.ID, p.ID, models.AssetCrypto)}, weights)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Pitch.ShareCount)
	assert.Equal(t, 13, out.Owner.CryptoKarma)

	mine, err := s.ListPitches(ctx, db.PitchFilter{AuthorIDs: []string{owner.ID}})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	none, err := s.ListPitches(ctx, db.PitchFilter{AuthorIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = like(s, fan, &models.Pitch{ID: uuid.NewString(), UserID: owner.ID, Asset: p.Asset})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func testDuplicateEvents(t *testing.T, s db.Store) {
	ctx := context.Background()
	owner, fan := newUser(t, s), newUser(t, s)
	p := newPitch(t, s, owner, models.AssetStock)

	_, err := like(s, fan, p)
	require.NoError(t, err)
	_, err = like(s, fan, p)
	assert.ErrorIs(t, err, db.ErrDuplicate)

	got, err := s.GetPitch(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikeCount)
	u, err := s.GetUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, u.StockKarma)
}

func testConcurrentLikes(t *testing.T, s db.Store) {
	ctx := context.Background()
	owner := newUser(t, s)
	p := newPitch(t, s, owner, models.AssetStock)
	fans := make([]*models.User, 20)
	for i := range fans {
		fans[i] = newUser(t, s)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	// every fan likes twice at once: one of each pair must lose
	for _, fan := range fans {
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := like(s, fan, p)
				if err != nil && !errors.Is(err, db.ErrDuplicate) {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}()
		}
	}
	wg.Wait()

	assert.Equal(t, len(fans), accepted)
	got, err := s.GetPitch(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, len(fans), got.LikeCount)
	u, err := s.GetUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, len(fans), u.TotalStockLikes)
	assert.Equal(t, 10+2*len(fans), u.StockKarma)
}

func testComments(t *testing.T, s db.Store) {
	ctx := context.Background()
	author := newUser(t, s)
	p := newPitch(t, s, author, models.AssetStock)
	other := newPitch(t, s, author, models.AssetStock)

	top, err := newComment(t, s, author, p, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := newComment(t, s, author, p, &top.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	parent, err := s.GetComment(ctx, top.ID)
	require.NoError(t, err)
	assert.Len(t, parent.ChildIDs, 10)

	thread, err := s.GetThread(ctx, p.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, []string{top.ID}, []string(thread.CommentIDs))

	list, err := s.ListComments(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 11)

	// parents must live on the same pitch
	_, err = newComment(t, s, author, other, &top.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
	missing := uuid.NewString()
	_, err = newComment(t, s, author, p, &missing)
	assert.ErrorIs(t, err, db.ErrNotFound)

	list, err = s.ListComments(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, list, "a rejected comment leaves nothing behind")

	u, err := s.GetUser(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, u.StockKarma, "comments carry no karma")
}

func testRebuild(t *testing.T, s db.Store) {
	ctx := context.Background()
	owner, fan := newUser(t, s), newUser(t, s)
	p := newPitch(t, s, owner, models.AssetStock)
	_, err := like(s, fan, p)
	require.NoError(t, err)

	events, err := s.ListEvents(ctx)
	require.NoError(t, err)
	counters := db.Tabulate(events)

	require.NoError(t, s.Rebuild(ctx, db.Tabulate(nil), weights))
	u, err := s.GetUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, u.Karma())

	require.NoError(t, s.Rebuild(ctx, counters, weights))
	u, err = s.GetUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, u.StockKarma)
	got, err := s.GetPitch(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikeCount)
}

func testNotifications(t *testing.T, s db.Store) {
	ctx := context.Background()
	a, b := newUser(t, s), newUser(t, s)

	first := &models.Notification{UserID: a.ID, ActorID: b.ID, Type: models.NotificationFollow, TargetID: b.ID}
	require.NoError(t, s.CreateNotification(ctx, first))
	second := &models.Notification{UserID: a.ID, ActorID: b.ID, Type: models.NotificationLike, TargetID: uuid.NewString()}
	require.NoError(t, s.CreateNotification(ctx, second))

	list, err := s.ListNotifications(ctx, a.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	assert.ErrorIs(t, s.MarkNotificationRead(ctx, b.ID, first.ID), db.ErrNotFound)
	require.NoError(t, s.MarkNotificationRead(ctx, a.ID, first.ID))
	list, err = s.ListNotifications(ctx, a.ID, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
