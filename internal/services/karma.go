package services

import (
	"context"
	"errors"
	"time"

	"pitchfeed/internal/db"
	"pitchfeed/internal/metrics"
	"pitchfeed/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// KarmaService is the only writer of reputation and engagement counters.
// Every counter change goes through Record as one ledger event.
type KarmaService struct {
	store   db.Store
	weights models.KarmaWeights
	metrics *metrics.Registry
	now     func() time.Time
}

func NewKarmaService(store db.Store, weights models.KarmaWeights, m *metrics.Registry) *KarmaService {
	return &KarmaService{store: store, weights: weights, metrics: m, now: time.Now}
}

func (k *KarmaService) Weights() models.KarmaWeights {
	return k.weights
}

// Record appends m.Event to the ledger and applies its counter effects in
// the same atomic step. A repeated (actor, target, type) fails with
// ErrDuplicateEvent and changes nothing.
func (k *KarmaService) Record(ctx context.Context, m db.Mutation) (*db.Outcome, error) {
	ev := m.Event
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = k.now().UTC()
	}

	out, err := k.store.Commit(ctx, m, k.weights)
	if err != nil {
		outcome := "failed"
		switch {
		case errors.Is(err, db.ErrDuplicate):
			outcome = "duplicate"
		case errors.Is(err, db.ErrNotFound):
			outcome = "not_found"
		}
		k.metrics.ObserveEvent(string(ev.Type), outcome)
		log.Debug().Err(err).Str("type", string(ev.Type)).Str("actor", ev.ActorID).Str("target", ev.TargetID).Msg("event rejected")
		return nil, translate(err)
	}

	k.metrics.ObserveEvent(string(ev.Type), "accepted")
	log.Debug().
		Uint("seq", out.Event.Seq).
		Str("type", string(ev.Type)).
		Str("actor", ev.ActorID).
		Str("target", ev.TargetID).
		Int("owner_karma", out.Owner.Karma()).
		Msg("event recorded")
	return out, nil
}

// ReplayReport summarizes a ledger replay.
type ReplayReport struct {
	Events   int            `json:"events"`
	Users    int            `json:"users"`
	Drifted  []Drift        `json:"drifted,omitempty"`
	Counters []CounterDrift `json:"counters,omitempty"`
}

// DriftCount is the number of stored values that disagreed with the ledger.
func (r *ReplayReport) DriftCount() int {
	return len(r.Drifted) + len(r.Counters)
}

// Drift is a user whose stored counters or karma disagreed with the ledger.
type Drift struct {
	UserID      string            `json:"user_id"`
	Class       models.AssetClass `json:"class"`
	Stored      models.Tally      `json:"stored"`
	Ledger      models.Tally      `json:"ledger"`
	StoredKarma int               `json:"stored_karma"`
	LedgerKarma int               `json:"ledger_karma"`
}

// Counter kinds reported in CounterDrift.
const (
	CounterPitchLikes   = "pitch_likes"
	CounterPitchShares  = "pitch_shares"
	CounterCommentLikes = "comment_likes"
)

// CounterDrift is a pitch or comment engagement counter that disagreed with
// the ledger.
type CounterDrift struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Stored int    `json:"stored"`
	Ledger int    `json:"ledger"`
}

// Audit compares every stored counter against a fresh tabulation of the
// ledger without writing anything. Users and records the ledger never
// mentions are expected to be zero.
func (k *KarmaService) Audit(ctx context.Context) (*ReplayReport, error) {
	events, err := k.store.ListEvents(ctx)
	if err != nil {
		return nil, translate(err)
	}
	counters := db.Tabulate(events)

	users, err := k.store.ListUsers(ctx)
	if err != nil {
		return nil, translate(err)
	}
	report := &ReplayReport{Events: len(events), Users: len(users)}
	for _, u := range users {
		for _, class := range db.Classes {
			want := counters.Users[u.ID][class]
			got := u.Tally(class)
			gotKarma, wantKarma := classKarma(u, class), k.weights.Karma(want)
			if got != want || gotKarma != wantKarma {
				report.Drifted = append(report.Drifted, Drift{
					UserID:      u.ID,
					Class:       class,
					Stored:      got,
					Ledger:      want,
					StoredKarma: gotKarma,
					LedgerKarma: wantKarma,
				})
			}
		}
	}

	pitches, err := k.store.ListPitches(ctx, db.PitchFilter{})
	if err != nil {
		return nil, translate(err)
	}
	for _, p := range pitches {
		report.compare(CounterPitchLikes, p.ID, p.LikeCount, counters.PitchLikes[p.ID])
		report.compare(CounterPitchShares, p.ID, p.ShareCount, counters.PitchShares[p.ID])

		comments, err := k.store.ListComments(ctx, p.ID)
		if err != nil {
			return nil, translate(err)
		}
		for _, c := range comments {
			report.compare(CounterCommentLikes, c.ID, c.LikeCount, counters.CommentLikes[c.ID])
		}
	}
	return report, nil
}

func (r *ReplayReport) compare(kind, id string, stored, ledger int) {
	if stored != ledger {
		r.Counters = append(r.Counters, CounterDrift{Kind: kind, ID: id, Stored: stored, Ledger: ledger})
	}
}

func classKarma(u *models.User, class models.AssetClass) int {
	if class == models.AssetCrypto {
		return u.CryptoKarma
	}
	return u.StockKarma
}

// Replay rebuilds every derived counter from the ledger. Karma follows from
// the rebuilt counters, so the result depends only on the set of events.
func (k *KarmaService) Replay(ctx context.Context) (*ReplayReport, error) {
	report, err := k.Audit(ctx)
	if err != nil {
		return nil, err
	}
	events, err := k.store.ListEvents(ctx)
	if err != nil {
		return nil, translate(err)
	}
	if err := k.store.Rebuild(ctx, db.Tabulate(events), k.weights); err != nil {
		return nil, translate(err)
	}
	log.Info().Int("events", len(events)).Int("drifted", report.DriftCount()).Msg("counters rebuilt from ledger")
	return report, nil
}
