package db

import (
	"testing"

	"pitchfeed/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestEffectOf(t *testing.T) {
	assert.Equal(t, models.Tally{Pitches: 1}, EffectOf(models.EventPitchCreated).Owner)
	assert.Equal(t, Effect{PitchLikes: 1, Owner: models.Tally{Likes: 1}}, EffectOf(models.EventPitchLiked))
	assert.Equal(t, Effect{CommentLikes: 1, Owner: models.Tally{Likes: 1}}, EffectOf(models.EventCommentLiked))
	assert.Equal(t, Effect{PitchShares: 1, Owner: models.Tally{Shares: 1}}, EffectOf(models.EventPitchShared))
	assert.Equal(t, Effect{}, EffectOf(models.EventCommentCreated))
}

func TestTabulateIgnoresOrder(t *testing.T) {
	events := []*models.Event{
		{ActorID: "a", TargetID: "p1", Type: models.EventPitchCreated, OwnerID: "a", Class: models.AssetStock},
		{ActorID: "b", TargetID: "p1", Type: models.EventPitchLiked, OwnerID: "a", Class: models.AssetStock},
		{ActorID: "b", TargetID: "p1", Type: models.EventPitchShared, OwnerID: "a", Class: models.AssetStock},
		{ActorID: "a", TargetID: "p2", Type: models.EventPitchCreated, OwnerID: "a", Class: models.AssetCrypto},
		{ActorID: "b", TargetID: "c1", Type: models.EventCommentCreated, OwnerID: "b", Class: models.AssetStock},
		{ActorID: "a", TargetID: "c1", Type: models.EventCommentLiked, OwnerID: "b", Class: models.AssetStock},
	}
	forward := Tabulate(events)
	reversed := make([]*models.Event, len(events))
	for i, ev := range events {
		reversed[len(events)-1-i] = ev
	}
	assert.Equal(t, forward, Tabulate(reversed))

	assert.Equal(t, models.Tally{Pitches: 1, Likes: 1, Shares: 1}, forward.Users["a"][models.AssetStock])
	assert.Equal(t, models.Tally{Pitches: 1}, forward.Users["a"][models.AssetCrypto])
	assert.Equal(t, models.Tally{Likes: 1}, forward.Users["b"][models.AssetStock])
	assert.Equal(t, 1, forward.PitchLikes["p1"])
	assert.Equal(t, 1, forward.CommentLikes["c1"])
	assert.Equal(t, 13, models.DefaultKarmaWeights.Karma(forward.Users["a"][models.AssetStock]))
}
