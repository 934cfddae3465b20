package db

import (
	"pitchfeed/internal/models"
)

// Effect is the counter delta a single accepted event implies.
type Effect struct {
	PitchLikes   int
	PitchShares  int
	CommentLikes int
	Owner        models.Tally
}

func EffectOf(t models.EventType) Effect {
	switch t {
	case models.EventPitchCreated:
		return Effect{Owner: models.Tally{Pitches: 1}}
	case models.EventPitchLiked:
		return Effect{PitchLikes: 1, Owner: models.Tally{Likes: 1}}
	case models.EventCommentLiked:
		return Effect{CommentLikes: 1, Owner: models.Tally{Likes: 1}}
	case models.EventPitchShared:
		return Effect{PitchShares: 1, Owner: models.Tally{Shares: 1}}
	}
	return Effect{}
}

// Add returns t with the delta applied.
func (e Effect) Add(t models.Tally) models.Tally {
	return models.Tally{
		Pitches: t.Pitches + e.Owner.Pitches,
		Likes:   t.Likes + e.Owner.Likes,
		Shares:  t.Shares + e.Owner.Shares,
	}
}

// Counters is every derived counter, recomputed from the ledger.
type Counters struct {
	Users        map[string]map[models.AssetClass]models.Tally
	PitchLikes   map[string]int
	PitchShares  map[string]int
	CommentLikes map[string]int
}

// Tabulate folds events into counters. Event order does not matter.
func Tabulate(events []*models.Event) *Counters {
	c := &Counters{
		Users:        make(map[string]map[models.AssetClass]models.Tally),
		PitchLikes:   make(map[string]int),
		PitchShares:  make(map[string]int),
		CommentLikes: make(map[string]int),
	}
	for _, ev := range events {
		eff := EffectOf(ev.Type)
		if eff.PitchLikes != 0 {
			c.PitchLikes[ev.TargetID] += eff.PitchLikes
		}
		if eff.PitchShares != 0 {
			c.PitchShares[ev.TargetID] += eff.PitchShares
		}
		if eff.CommentLikes != 0 {
			c.CommentLikes[ev.TargetID] += eff.CommentLikes
		}
		if eff.Owner == (models.Tally{}) {
			continue
		}
		byClass, ok := c.Users[ev.OwnerID]
		if !ok {
			byClass = make(map[models.AssetClass]models.Tally)
			c.Users[ev.OwnerID] = byClass
		}
		byClass[ev.Class] = eff.Add(byClass[ev.Class])
	}
	return c
}

// Classes lists the asset classes in a fixed order.
var Classes = []models.AssetClass{models.AssetStock, models.AssetCrypto}
