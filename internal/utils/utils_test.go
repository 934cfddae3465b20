package utils

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache(t *testing.T) {
	c, err := NewTTLCache[string, float64](2, time.Minute)
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	c.Set("AAPL", 180.95)
	v, ok := c.Get("AAPL")
	assert.True(t, ok)
	assert.Equal(t, 180.95, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("AAPL")
	assert.False(t, ok, "expired entries are gone")

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get("a")
	assert.False(t, ok, "least recently used entry is evicted")
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 20, ParseLimit("", 20, 100))
	assert.Equal(t, 20, ParseLimit("-3", 20, 100))
	assert.Equal(t, 5, ParseLimit("5", 20, 100))
	assert.Equal(t, 100, ParseLimit("5000", 20, 100))
	assert.True(t, ParseBool("true", false))
	assert.False(t, ParseBool("nope", false))
}

func TestRenderThesisSanitizes(t *testing.T) {
	out := RenderThesis("**Long** $AAPL <script>alert(1)</script>")
	assert.Contains(t, out, "<strong>Long</strong>")
	assert.NotContains(t, out, "<script>")

	out = RenderThesis("| Year | EPS |\n|---|---|\n| 2025 | 7.1 |")
	assert.Contains(t, out, "<table>")
}

func TestRenderComment(t *testing.T) {
	out := RenderComment("# Loud\n\nsee https://example.com ~~not~~ this")
	assert.NotContains(t, out, "<h1")
	assert.Contains(t, out, "Loud")
	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, `rel="nofollow noopener noreferrer"`)
	assert.Contains(t, out, "<del>not</del>")

	out = RenderComment("![chart](https://example.com/c.png)")
	assert.NotContains(t, out, "<img")
}

func TestExcerpt(t *testing.T) {
	html := RenderThesis("# Thesis\n\nServices   revenue keeps compounding.")
	assert.Equal(t, "Thesis Services revenue keeps compounding.", Excerpt(html, 100))

	short := Excerpt(html, 6)
	assert.True(t, strings.HasSuffix(short, "…"))
	assert.Equal(t, "Thesis…", short)
	assert.Empty(t, Excerpt("", 10))
}

func TestRecencyDecay(t *testing.T) {
	assert.Equal(t, 1.0, RecencyDecay(0, time.Hour))
	assert.InDelta(t, 0.5, RecencyDecay(time.Hour, time.Hour), 1e-9)
	assert.InDelta(t, 0.25, RecencyDecay(2*time.Hour, time.Hour), 1e-9)
	assert.Equal(t, 1.0, RecencyDecay(-time.Hour, time.Hour))
}

func TestClampReturn(t *testing.T) {
	assert.Equal(t, 50.0, ClampReturn(300, 50))
	assert.Equal(t, -50.0, ClampReturn(-300, 50))
	assert.Equal(t, 4.2, ClampReturn(4.2, 50))
	assert.Equal(t, 0.0, ClampReturn(math.NaN(), 50))
}

func TestCalculateScoreOrdering(t *testing.T) {
	cfg := DefaultConfig
	fresh := CalculateScore(cfg, 0, 0, 0, 0)
	old := CalculateScore(cfg, 72*time.Hour, 0, 0, 0)
	liked := CalculateScore(cfg, 72*time.Hour, 50, 0, 0)
	assert.Greater(t, fresh, old)
	assert.Greater(t, liked, old)

	winner := CalculateScore(cfg, time.Hour, 0, 0, 20)
	loser := CalculateScore(cfg, time.Hour, 0, 0, -20)
	assert.Greater(t, winner, loser)
}

func TestGetUserTier(t *testing.T) {
	cases := map[int]string{
		0:    "bronze",
		99:   "bronze",
		100:  "silver",
		250:  "gold",
		499:  "gold",
		500:  "platinum",
		1000: "diamond",
		5000: "diamond",
	}
	for karma, want := range cases {
		assert.Equal(t, want, GetUserTier(karma).Name, "karma %d", karma)
	}
}

func TestTierBadge(t *testing.T) {
	assert.Equal(t, "#CD7F32", GetUserTier(0).Color)
	assert.Equal(t, "#FFD700", GetUserTier(300).Color)

	weights := map[int]float64{0: 1.0, 100: 1.2, 250: 1.5, 500: 2.0, 1000: 2.5}
	for karma, want := range weights {
		assert.Equal(t, want, GetUserTier(karma).Weight, "karma %d", karma)
	}
}

func TestGetNextTier(t *testing.T) {
	next := GetNextTier(0)
	require.NotNil(t, next)
	assert.Equal(t, NextTier{Name: "silver", PointsNeeded: 100}, *next)

	next = GetNextTier(120)
	require.NotNil(t, next)
	assert.Equal(t, NextTier{Name: "gold", PointsNeeded: 130}, *next)

	next = GetNextTier(999)
	require.NotNil(t, next)
	assert.Equal(t, NextTier{Name: "diamond", PointsNeeded: 1}, *next)

	assert.Nil(t, GetNextTier(1000))
}
