package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"pitchfeed/internal/db"
	"pitchfeed/internal/models"
	"pitchfeed/internal/oracle"
	"pitchfeed/internal/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// PitchService owns pitch records. Counter changes go through KarmaService.
type PitchService struct {
	store      db.Store
	oracle     oracle.Oracle
	karma      *KarmaService
	notifier   *NotificationService
	rendered   *utils.TTLCache[string, renderedThesis]
	maxThesis  int
	now        func() time.Time
}

// renderedThesis is the HTML form of a thesis, cached by pitch id. Theses
// never change after creation, so entries only age out.
type renderedThesis struct {
	HTML    string
	Excerpt string
}

func NewPitchService(store db.Store, o oracle.Oracle, karma *KarmaService, notifier *NotificationService, rendered *utils.TTLCache[string, renderedThesis], maxThesis int) *PitchService {
	return &PitchService{
		store:      store,
		oracle:     o,
		karma:      karma,
		notifier:   notifier,
		rendered:   rendered,
		maxThesis:  maxThesis,
		now:        time.Now,
	}
}

// PitchView is a pitch as served to readers.
type PitchView struct {
	*models.Pitch
	ThesisHTML   string `json:"thesis_html"`
	Excerpt      string `json:"excerpt"`
	CommentCount int    `json:"comment_count"`
}

// ReturnQuote is a return percentage against the pitch price. Stale is set
// when the oracle was unavailable and the creation snapshot was used.
type ReturnQuote struct {
	PitchID    string    `json:"pitch_id"`
	Percentage float64   `json:"percentage"`
	Price      float64   `json:"price"`
	PitchPrice float64   `json:"pitch_price"`
	AsOf       time.Time `json:"as_of"`
	Stale      bool      `json:"stale"`
}

const (
	excerptLength           = 140
	returnLookupConcurrency = 8
)

// CreatePitch snapshots the asset through the oracle and records the pitch.
// An empty classHint accepts whatever class the oracle reports.
func (s *PitchService) CreatePitch(ctx context.Context, userID, assetID, thesis string, classHint models.AssetClass) (*models.Pitch, error) {
	thesis = strings.TrimSpace(thesis)
	assetID = strings.TrimSpace(assetID)
	switch {
	case thesis == "":
		return nil, invalidInput("thesis is empty")
	case utf8.RuneCountInString(thesis) > s.maxThesis:
		return nil, invalidInput("thesis is longer than %d characters", s.maxThesis)
	case assetID == "":
		return nil, invalidInput("asset id is empty")
	case classHint != "" && !classHint.Valid():
		return nil, invalidInput("unknown asset class %q", classHint)
	}

	author, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	if author.Deactivated {
		return nil, invalidState("user %s is deactivated", userID)
	}

	// No store lock is held across the oracle call.
	snapshot, err := s.oracle.AssetMetadata(ctx, assetID)
	if err != nil {
		return nil, translate(err)
	}
	if classHint != "" && snapshot.Class != classHint {
		return nil, invalidInput("asset %s is %s, not %s", assetID, snapshot.Class, classHint)
	}
	if snapshot.Price <= 0 {
		return nil, translate(oracle.ErrUnavailable)
	}

	now := s.now().UTC()
	if snapshot.CapturedAt.IsZero() {
		snapshot.CapturedAt = now
	}
	pitch := &models.Pitch{
		ID:         uuid.NewString(),
		UserID:     userID,
		Asset:      snapshot,
		Thesis:     thesis,
		PitchPrice: snapshot.Price,
		ThreadID:   uuid.NewString(),
		CreatedAt:  now,
	}
	thread := &models.Thread{ID: pitch.ThreadID, PitchID: pitch.ID}

	out, err := s.karma.Record(ctx, db.Mutation{
		Event: &models.Event{
			ActorID:  userID,
			TargetID: pitch.ID,
			Type:     models.EventPitchCreated,
			OwnerID:  userID,
			PitchID:  pitch.ID,
			Class:    snapshot.Class,
		},
		Pitch:  pitch,
		Thread: thread,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("pitch", pitch.ID).Str("user", userID).Str("asset", assetID).Float64("price", snapshot.Price).Msg("pitch created")
	return out.Pitch, nil
}

// LikePitch records byUserID's like. Authors cannot like their own pitches.
func (s *PitchService) LikePitch(ctx context.Context, pitchID, byUserID string) (int, error) {
	pitch, err := s.store.GetPitch(ctx, pitchID)
	if err != nil {
		return 0, translate(err)
	}
	if pitch.UserID == byUserID {
		return pitch.LikeCount, invalidState("users cannot like their own pitch")
	}
	if _, err := s.store.GetUser(ctx, byUserID); err != nil {
		return 0, translate(err)
	}

	out, err := s.karma.Record(ctx, db.Mutation{Event: &models.Event{
		ActorID:  byUserID,
		TargetID: pitchID,
		Type:     models.EventPitchLiked,
		OwnerID:  pitch.UserID,
		PitchID:  pitchID,
		Class:    pitch.Asset.Class,
	}})
	if err != nil {
		return 0, err
	}
	s.notifier.Notify(&models.Notification{
		UserID:   pitch.UserID,
		ActorID:  byUserID,
		Type:     models.NotificationLike,
		TargetID: pitchID,
	})
	return out.Pitch.LikeCount, nil
}

// SharePitch records byUserID's share. Sharing one's own pitch is allowed.
func (s *PitchService) SharePitch(ctx context.Context, pitchID, byUserID string) (int, error) {
	pitch, err := s.store.GetPitch(ctx, pitchID)
	if err != nil {
		return 0, translate(err)
	}
	if _, err := s.store.GetUser(ctx, byUserID); err != nil {
		return 0, translate(err)
	}

	out, err := s.karma.Record(ctx, db.Mutation{Event: &models.Event{
		ActorID:  byUserID,
		TargetID: pitchID,
		Type:     models.EventPitchShared,
		OwnerID:  pitch.UserID,
		PitchID:  pitchID,
		Class:    pitch.Asset.Class,
	}})
	if err != nil {
		return 0, err
	}
	return out.Pitch.ShareCount, nil
}

// CurrentReturn prices the pitch against the oracle. When the oracle is
// unavailable the quote falls back to the snapshot taken at creation: a zero
// return, marked stale. Pricing never writes state.
func (s *PitchService) CurrentReturn(ctx context.Context, pitchID string) (*ReturnQuote, error) {
	pitch, err := s.store.GetPitch(ctx, pitchID)
	if err != nil {
		return nil, translate(err)
	}
	return s.returnFor(ctx, pitch)
}

func (s *PitchService) returnFor(ctx context.Context, pitch *models.Pitch) (*ReturnQuote, error) {
	q, err := s.oracle.CurrentPrice(ctx, pitch.Asset.AssetID)
	if err != nil {
		if !errors.Is(err, oracle.ErrUnavailable) {
			return nil, translate(err)
		}
		log.Debug().Err(err).Str("asset", pitch.Asset.AssetID).Str("pitch", pitch.ID).Msg("oracle unavailable, using snapshot")
		return &ReturnQuote{
			PitchID:    pitch.ID,
			Price:      pitch.PitchPrice,
			PitchPrice: pitch.PitchPrice,
			AsOf:       pitch.Asset.CapturedAt,
			Stale:      true,
		}, nil
	}

	return &ReturnQuote{
		PitchID:    pitch.ID,
		Percentage: pitch.Return(q.Price),
		Price:      q.Price,
		PitchPrice: pitch.PitchPrice,
		AsOf:       q.AsOf,
	}, nil
}

// returnsFor prices pitches in parallel. The result is index-aligned with
// pitches; a pitch that could not be priced has a nil entry.
func (s *PitchService) returnsFor(ctx context.Context, pitches []*models.Pitch) []*ReturnQuote {
	out := make([]*ReturnQuote, len(pitches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(returnLookupConcurrency)
	for i, p := range pitches {
		g.Go(func() error {
			q, err := s.returnFor(gctx, p)
			if err != nil {
				log.Debug().Err(err).Str("pitch", p.ID).Msg("pitch not priced")
				return nil
			}
			out[i] = q
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Performance summarizes how a user's pitches have done at current prices.
// A pitch is successful when its live return is positive. Quotes served
// from the creation snapshot count toward TotalPitches only.
type Performance struct {
	UserID            string  `json:"user_id"`
	TotalPitches      int     `json:"total_pitches"`
	PricedPitches     int     `json:"priced_pitches"`
	SuccessfulPitches int     `json:"successful_pitches"`
	SuccessRate       float64 `json:"success_rate"`
	AverageReturn     float64 `json:"average_return"`
	StaleQuotes       int     `json:"stale_quotes"`
}

func (s *PitchService) PerformanceMetrics(ctx context.Context, userID string) (*Performance, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, translate(err)
	}
	pitches, err := s.store.ListPitches(ctx, db.PitchFilter{AuthorIDs: []string{userID}})
	if err != nil {
		return nil, translate(err)
	}

	perf := &Performance{UserID: userID, TotalPitches: len(pitches)}
	var sum float64
	for _, q := range s.returnsFor(ctx, pitches) {
		switch {
		case q == nil:
		case q.Stale:
			perf.StaleQuotes++
		default:
			perf.PricedPitches++
			sum += q.Percentage
			if q.Percentage > 0 {
				perf.SuccessfulPitches++
			}
		}
	}
	if perf.TotalPitches > 0 {
		perf.SuccessRate = float64(perf.SuccessfulPitches) / float64(perf.TotalPitches) * 100
	}
	if perf.PricedPitches > 0 {
		perf.AverageReturn = sum / float64(perf.PricedPitches)
	}
	return perf, nil
}

func (s *PitchService) GetPitch(ctx context.Context, pitchID string) (*PitchView, error) {
	pitch, err := s.store.GetPitch(ctx, pitchID)
	if err != nil {
		return nil, translate(err)
	}
	comments, err := s.store.ListComments(ctx, pitchID)
	if err != nil {
		return nil, translate(err)
	}
	return s.view(pitch, len(comments)), nil
}

// ListByUser returns userID's pitches, newest first.
func (s *PitchService) ListByUser(ctx context.Context, userID string, limit int) ([]*PitchView, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, translate(err)
	}
	pitches, err := s.store.ListPitches(ctx, db.PitchFilter{AuthorIDs: []string{userID}, Limit: limit})
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*PitchView, 0, len(pitches))
	for _, p := range pitches {
		comments, err := s.store.ListComments(ctx, p.ID)
		if err != nil {
			return nil, translate(err)
		}
		out = append(out, s.view(p, len(comments)))
	}
	return out, nil
}

func (s *PitchService) view(p *models.Pitch, commentCount int) *PitchView {
	r, ok := s.rendered.Get(p.ID)
	if !ok {
		html := utils.RenderThesis(p.Thesis)
		r = renderedThesis{HTML: html, Excerpt: utils.Excerpt(html, excerptLength)}
		s.rendered.Set(p.ID, r)
	}
	return &PitchView{
		Pitch:        p,
		ThesisHTML:   r.HTML,
		Excerpt:      r.Excerpt,
		CommentCount: commentCount,
	}
}
