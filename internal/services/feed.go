package services

import (
	"cmp"
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"slices"
	"strings"
	"time"

	"pitchfeed/internal/db"
	"pitchfeed/internal/metrics"
	"pitchfeed/internal/models"
	"pitchfeed/internal/utils"
)

// FeedConfig parameterizes one feed request.
type FeedConfig struct {
	Limit            int
	IncludeDiscovery bool
	DiscoverySize    int
	// Seed fixes the discovery sample; equal seeds over equal state give
	// equal samples.
	Seed int64
	Rank utils.RankConfig
	// Now is the instant recency is measured from. Zero means the service clock.
	Now time.Time
}

// FeedItem is one ranked pitch.
type FeedItem struct {
	Pitch     *models.Pitch `json:"pitch"`
	Score     float64       `json:"score"`
	Return    *ReturnQuote  `json:"return,omitempty"`
	Discovery bool          `json:"discovery"`
}

// FeedService ranks pitches for a viewer. It only reads.
type FeedService struct {
	store   db.Store
	pitches *PitchService
	metrics *metrics.Registry
	now     func() time.Time
}

const DefaultFeedLimit = 20

func NewFeedService(store db.Store, pitches *PitchService, m *metrics.Registry) *FeedService {
	return &FeedService{store: store, pitches: pitches, metrics: m, now: time.Now}
}

// Compose builds the viewer's feed: pitches by followed users, plus an
// optional karma-weighted sample of everyone else, scored and sorted.
func (s *FeedService) Compose(ctx context.Context, viewerID string, cfg FeedConfig) ([]*FeedItem, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveFeed(time.Since(start)) }()

	if _, err := s.store.GetUser(ctx, viewerID); err != nil {
		return nil, translate(err)
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultFeedLimit
	}
	now := cfg.Now
	if now.IsZero() {
		now = s.now()
	}

	following, err := s.store.FollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, translate(err)
	}

	items := make([]*FeedItem, 0)
	if len(following) > 0 {
		pitches, err := s.store.ListPitches(ctx, db.PitchFilter{AuthorIDs: following})
		if err != nil {
			return nil, translate(err)
		}
		for _, p := range pitches {
			items = append(items, &FeedItem{Pitch: p})
		}
	}
	if cfg.IncludeDiscovery && cfg.DiscoverySize > 0 {
		sample, err := s.discover(ctx, viewerID, following, cfg)
		if err != nil {
			return nil, err
		}
		items = append(items, sample...)
	}
	if len(items) == 0 {
		return items, nil
	}

	s.lookupReturns(ctx, items)
	for _, it := range items {
		ret := 0.0
		if it.Return != nil {
			ret = it.Return.Percentage
		}
		it.Score = utils.CalculateScore(cfg.Rank, now.Sub(it.Pitch.CreatedAt), it.Pitch.LikeCount, it.Pitch.ShareCount, ret)
	}

	slices.SortFunc(items, func(a, b *FeedItem) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := b.Pitch.CreatedAt.Compare(a.Pitch.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Pitch.ID, b.Pitch.ID)
	})
	if len(items) > cfg.Limit {
		items = items[:cfg.Limit]
	}
	return items, nil
}

// lookupReturns prices every item. A pitch whose return cannot be computed
// keeps a nil Return and scores a zero return term.
func (s *FeedService) lookupReturns(ctx context.Context, items []*FeedItem) {
	pitches := make([]*models.Pitch, len(items))
	for i, it := range items {
		pitches[i] = it.Pitch
	}
	for i, q := range s.pitches.returnsFor(ctx, pitches) {
		items[i].Return = q
	}
}

// discover samples DiscoverySize pitches from authors the viewer does not
// follow. Each pitch gets the key u^(1/w), u drawn from a hash of the seed
// and pitch id, w the weight of the author's karma tier; the largest keys win.
func (s *FeedService) discover(ctx context.Context, viewerID string, following []string, cfg FeedConfig) ([]*FeedItem, error) {
	exclude := append(slices.Clone(following), viewerID)
	pool, err := s.store.ListPitches(ctx, db.PitchFilter{ExcludeAuthorIDs: exclude})
	if err != nil {
		return nil, translate(err)
	}
	if len(pool) == 0 {
		return nil, nil
	}

	authorIDs := make([]string, 0, len(pool))
	seen := make(map[string]bool)
	for _, p := range pool {
		if !seen[p.UserID] {
			seen[p.UserID] = true
			authorIDs = append(authorIDs, p.UserID)
		}
	}
	authors, err := s.store.GetUsers(ctx, authorIDs)
	if err != nil {
		return nil, translate(err)
	}
	weight := make(map[string]float64, len(authors))
	for _, u := range authors {
		weight[u.ID] = utils.GetUserTier(u.Karma()).Weight
	}

	type keyed struct {
		pitch *models.Pitch
		key   float64
	}
	ranked := make([]keyed, 0, len(pool))
	for _, p := range pool {
		w := weight[p.UserID]
		if w <= 0 {
			w = 1
		}
		ranked = append(ranked, keyed{pitch: p, key: math.Pow(unitHash(cfg.Seed, p.ID), 1/w)})
	}
	slices.SortFunc(ranked, func(a, b keyed) int {
		if c := cmp.Compare(b.key, a.key); c != 0 {
			return c
		}
		return strings.Compare(a.pitch.ID, b.pitch.ID)
	})

	n := min(cfg.DiscoverySize, len(ranked))
	out := make([]*FeedItem, 0, n)
	for _, k := range ranked[:n] {
		out = append(out, &FeedItem{Pitch: k.pitch, Discovery: true})
	}
	return out, nil
}

// unitHash maps (seed, id) to a value in (0, 1).
func unitHash(seed int64, id string) float64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(seed))
	h.Write(buf[:])
	h.Write([]byte(id))
	// 53 bits fit a float64 mantissa exactly.
	return (float64(h.Sum64()>>11) + 0.5) / float64(uint64(1)<<53)
}
