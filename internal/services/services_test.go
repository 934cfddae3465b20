package services

import (
	"context"
	"testing"
	"time"

	"pitchfeed/internal/db/memory"
	"pitchfeed/internal/models"
	"pitchfeed/internal/oracle"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memory.Store
	oracle *oracle.Static
	svc    *Services
	clock  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  memory.New(),
		oracle: oracle.NewStatic(DemoAssets...),
		clock:  time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC),
	}
	f.svc = f.services()
	return f
}

// services builds a fresh engine set over the fixture's store and oracle.
func (f *fixture) services() *Services {
	svc, err := New(f.store, f.oracle, Options{})
	require.NoError(f.t, err)
	svc.SetClock(func() time.Time { return f.clock })
	f.t.Cleanup(svc.Close)
	return svc
}

func (f *fixture) tick() {
	f.clock = f.clock.Add(time.Second)
}

func (f *fixture) user(handle string) *models.User {
	f.t.Helper()
	u, err := f.svc.Identity.CreateUser(f.ctx, NewUser{Handle: handle})
	require.NoError(f.t, err)
	f.tick()
	return u
}

func (f *fixture) pitch(userID, assetID string) *models.Pitch {
	f.t.Helper()
	p, err := f.svc.Pitches.CreatePitch(f.ctx, userID, assetID, "Thesis for "+assetID, "")
	require.NoError(f.t, err)
	f.tick()
	return p
}

func (f *fixture) comment(pitchID, authorID string, parent *models.Comment) *models.Comment {
	f.t.Helper()
	var parentID *string
	if parent != nil {
		parentID = &parent.ID
	}
	c, err := f.svc.Threads.CreateComment(f.ctx, pitchID, authorID, "comment", parentID)
	require.NoError(f.t, err)
	f.tick()
	return c
}

func (f *fixture) reload(id string) *models.User {
	f.t.Helper()
	u, err := f.store.GetUser(f.ctx, id)
	require.NoError(f.t, err)
	return u
}
