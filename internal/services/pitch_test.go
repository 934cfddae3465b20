package services

import (
	"strings"
	"testing"

	"pitchfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePitchValidation(t *testing.T) {
	f := newFixture(t)
	u := f.user("pitcher")

	cases := []struct {
		name    string
		userID  string
		assetID string
		thesis  string
		hint    models.AssetClass
		want    error
	}{
		{"empty thesis", u.ID, "AAPL", "   ", "", ErrInvalidInput},
		{"long thesis", u.ID, "AAPL", strings.Repeat("a", 2001), "", ErrInvalidInput},
		{"unknown class", u.ID, "AAPL", "ok", "bonds", ErrInvalidInput},
		{"class mismatch", u.ID, "bitcoin", "ok", models.AssetStock, ErrInvalidInput},
		{"unknown user", "ghost", "AAPL", "ok", "", ErrNotFound},
		{"unknown asset", u.ID, "NOPE", "ok", "", ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Pitches.CreatePitch(f.ctx, tc.userID, tc.assetID, tc.thesis, tc.hint)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Equal(t, 0, f.reload(u.ID).Karma(), "rejected pitches leave no trace")
}

func TestCreatePitchOracleDown(t *testing.T) {
	f := newFixture(t)
	u := f.user("pitcher")
	f.oracle.SetUnavailable("MSFT", true)

	_, err := f.svc.Pitches.CreatePitch(f.ctx, u.ID, "MSFT", "cloud", "")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCreatePitchSnapshotIsPermanent(t *testing.T) {
	f := newFixture(t)
	u := f.user("pitcher")
	p, err := f.svc.Pitches.CreatePitch(f.ctx, u.ID, "bitcoin", "digital gold", models.AssetCrypto)
	require.NoError(t, err)
	assert.Equal(t, models.AssetCrypto, p.Asset.Class)
	assert.Equal(t, "Layer 1", p.Asset.Category)
	assert.Equal(t, 10, f.reload(u.ID).CryptoKarma)

	f.oracle.SetPrice("bitcoin", 32000)
	got, err := f.store.GetPitch(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 64000.0, got.PitchPrice)
	assert.Equal(t, 64000.0, got.Asset.Price)

	ret, err := f.svc.Pitches.CurrentReturn(f.ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, -50.0, ret.Percentage, 1e-9)
}

func TestSelfLikeRejected(t *testing.T) {
	f := newFixture(t)
	u := f.user("pitcher")
	p := f.pitch(u.ID, "AAPL")

	_, err := f.svc.Pitches.LikePitch(f.ctx, p.ID, u.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	got, err := f.store.GetPitch(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.LikeCount)
	assert.Equal(t, 10, f.reload(u.ID).StockKarma)
}

func TestCurrentReturnFallsBackToSnapshot(t *testing.T) {
	f := newFixture(t)
	u := f.user("pitcher")
	p := f.pitch(u.ID, "AAPL")

	f.oracle.SetPrice("AAPL", 190)
	live, err := f.svc.Pitches.CurrentReturn(f.ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, live.Stale)
	assert.Equal(t, 190.0, live.Price)

	f.oracle.SetUnavailable("AAPL", true)
	for _, svc := range []*Services{f.svc, f.services()} {
		stale, err := svc.Pitches.CurrentReturn(f.ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, stale.Stale)
		assert.Equal(t, 180.95, stale.Price, "the creation snapshot, not the last live read")
		assert.Equal(t, 0.0, stale.Percentage)
		assert.Equal(t, p.Asset.CapturedAt, stale.AsOf)
	}

	_, err = f.svc.Pitches.CurrentReturn(f.ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPerformanceMetrics(t *testing.T) {
	f := newFixture(t)
	u := f.user("pitcher")
	f.pitch(u.ID, "AAPL")
	f.pitch(u.ID, "MSFT")
	f.pitch(u.ID, "bitcoin")
	f.pitch(u.ID, "ethereum")

	f.oracle.SetPrice("AAPL", 180.95*1.10)
	f.oracle.SetPrice("MSFT", 415.10*0.80)
	f.oracle.SetPrice("bitcoin", 64000*1.30)
	f.oracle.SetUnavailable("ethereum", true)

	perf, err := f.svc.Pitches.PerformanceMetrics(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, perf.UserID)
	assert.Equal(t, 4, perf.TotalPitches)
	assert.Equal(t, 3, perf.PricedPitches)
	assert.Equal(t, 2, perf.SuccessfulPitches)
	assert.Equal(t, 1, perf.StaleQuotes)
	assert.InDelta(t, 50.0, perf.SuccessRate, 1e-9)
	assert.InDelta(t, (10.0-20.0+30.0)/3, perf.AverageReturn, 1e-6)

	empty, err := f.svc.Pitches.PerformanceMetrics(f.ctx, f.user("lurker").ID)
	require.NoError(t, err)
	assert.Equal(t, &Performance{UserID: empty.UserID}, empty)

	_, err = f.svc.Pitches.PerformanceMetrics(f.ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPitchViewRenderIsCached(t *testing.T) {
	f := newFixture(t)
	u := f.user("pitcher")
	p, err := f.svc.Pitches.CreatePitch(f.ctx, u.ID, "AAPL", "**Services** keep growing", "")
	require.NoError(t, err)
	assert.Zero(t, f.svc.Pitches.rendered.Len())

	first, err := f.svc.Pitches.GetPitch(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Contains(t, first.ThesisHTML, "<strong>Services</strong>")
	assert.Equal(t, 1, f.svc.Pitches.rendered.Len())

	second, err := f.svc.Pitches.GetPitch(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ThesisHTML, second.ThesisHTML)
	assert.Equal(t, first.Excerpt, second.Excerpt)
	assert.Equal(t, 1, f.svc.Pitches.rendered.Len())
}

func TestGetPitchAndListByUser(t *testing.T) {
	f := newFixture(t)
	u := f.user("pitcher")
	other := f.user("other")
	older := f.pitch(u.ID, "AAPL")
	newer := f.pitch(u.ID, "MSFT")
	f.pitch(other.ID, "AAPL")
	f.comment(older.ID, other.ID, nil)

	view, err := f.svc.Pitches.GetPitch(f.ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.CommentCount)
	assert.Contains(t, view.ThesisHTML, "Thesis for AAPL")
	assert.Equal(t, "Thesis for AAPL", view.Excerpt)

	list, err := f.svc.Pitches.ListByUser(f.ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	_, err = f.svc.Pitches.ListByUser(f.ctx, "ghost", 10)
	assert.ErrorIs(t, err, ErrNotFound)
}
