package services

import (
	"context"
	"time"

	"pitchfeed/internal/db"
	"pitchfeed/internal/metrics"
	"pitchfeed/internal/models"
	"pitchfeed/internal/oracle"
	"pitchfeed/internal/utils"

	"github.com/rs/zerolog/log"
)

// Options configures New.
type Options struct {
	Karma            models.KarmaWeights
	MaxThesisLength  int
	MaxCommentLength int
	RenderCacheTTL   time.Duration
	RenderCacheSize  int
	Metrics          *metrics.Registry
}

func (o *Options) defaults() {
	if o.Karma == (models.KarmaWeights{}) {
		o.Karma = models.DefaultKarmaWeights
	}
	if o.MaxThesisLength <= 0 {
		o.MaxThesisLength = 2000
	}
	if o.MaxCommentLength <= 0 {
		o.MaxCommentLength = 2000
	}
	if o.RenderCacheSize <= 0 {
		o.RenderCacheSize = 1024
	}
}

// Services wires the engines over one store and one oracle.
type Services struct {
	Identity      *IdentityService
	Pitches       *PitchService
	Threads       *ThreadService
	Karma         *KarmaService
	Feed          *FeedService
	Notifications *NotificationService
}

func New(store db.Store, o oracle.Oracle, opts Options) (*Services, error) {
	opts.defaults()
	rendered, err := utils.NewTTLCache[string, renderedThesis](opts.RenderCacheSize, opts.RenderCacheTTL)
	if err != nil {
		return nil, err
	}

	notifications := NewNotificationService(store, opts.Metrics)
	karma := NewKarmaService(store, opts.Karma, opts.Metrics)
	pitches := NewPitchService(store, o, karma, notifications, rendered, opts.MaxThesisLength)
	return &Services{
		Identity:      NewIdentityService(store, notifications),
		Pitches:       pitches,
		Threads:       NewThreadService(store, karma, notifications, opts.MaxCommentLength),
		Karma:         karma,
		Feed:          NewFeedService(store, pitches, opts.Metrics),
		Notifications: notifications,
	}, nil
}

// Close drains background work.
func (s *Services) Close() {
	s.Notifications.Close()
}

// SetClock pins every engine to now, for tests and the demo seed.
func (s *Services) SetClock(now func() time.Time) {
	s.Identity.now = now
	s.Pitches.now = now
	s.Threads.now = now
	s.Karma.now = now
	s.Feed.now = now
	s.Pitches.rendered.SetClock(now)
}

// DemoAssets is the asset table the static oracle starts with.
var DemoAssets = []models.AssetSnapshot{
	{AssetID: "AAPL", Symbol: "AAPL", Name: "Apple Inc.", Class: models.AssetStock, Price: 180.95, MarketCap: 2.8e12, Sector: "Technology", Industry: "Consumer Electronics"},
	{AssetID: "MSFT", Symbol: "MSFT", Name: "Microsoft Corporation", Class: models.AssetStock, Price: 415.10, MarketCap: 3.1e12, Sector: "Technology", Industry: "Software"},
	{AssetID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Class: models.AssetCrypto, Price: 64000, MarketCap: 1.26e12, Category: "Layer 1", Platform: "Bitcoin"},
	{AssetID: "ethereum", Symbol: "ETH", Name: "Ethereum", Class: models.AssetCrypto, Price: 3100, MarketCap: 3.7e11, Category: "Smart Contracts", Platform: "Ethereum"},
}

// SeedDemo creates three users and walks the pitch, like, comment and reply
// flow on AAPL so a fresh server has something to show.
func (s *Services) SeedDemo(ctx context.Context) error {
	alice, err := s.Identity.CreateUser(ctx, NewUser{Handle: "alice", DisplayName: "Alice"})
	if err != nil {
		return err
	}
	bob, err := s.Identity.CreateUser(ctx, NewUser{Handle: "bob", DisplayName: "Bob"})
	if err != nil {
		return err
	}
	carol, err := s.Identity.CreateUser(ctx, NewUser{Handle: "carol", DisplayName: "Carol"})
	if err != nil {
		return err
	}

	for _, f := range [][2]string{{bob.ID, alice.ID}, {carol.ID, alice.ID}, {alice.ID, bob.ID}} {
		if err := s.Identity.Follow(ctx, f[0], f[1]); err != nil {
			return err
		}
	}

	pitch, err := s.Pitches.CreatePitch(ctx, alice.ID, "AAPL", "Services revenue keeps compounding while the hardware cycle bottoms out.", models.AssetStock)
	if err != nil {
		return err
	}
	if _, err := s.Pitches.LikePitch(ctx, pitch.ID, bob.ID); err != nil {
		return err
	}
	top, err := s.Threads.CreateComment(ctx, pitch.ID, bob.ID, "Nice thesis", nil)
	if err != nil {
		return err
	}
	if _, err := s.Threads.CreateComment(ctx, pitch.ID, carol.ID, "Margins say otherwise.", &top.ID); err != nil {
		return err
	}
	if _, err := s.Pitches.CreatePitch(ctx, bob.ID, "bitcoin", "Halving supply shock is not priced in.", models.AssetCrypto); err != nil {
		return err
	}

	log.Info().Str("alice", alice.ID).Str("bob", bob.ID).Str("carol", carol.ID).Str("pitch", pitch.ID).Msg("demo data seeded")
	return nil
}
