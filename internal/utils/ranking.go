package utils

import (
	"math"
	"time"
)

// RankConfig weights the feed score terms.
type RankConfig struct {
	Recency   float64       `yaml:"recency" json:"recency"`       // w1
	Likes     float64       `yaml:"likes" json:"likes"`           // w2
	Shares    float64       `yaml:"shares" json:"shares"`         // w3
	Return    float64       `yaml:"return" json:"return"`         // w4
	HalfLife  time.Duration `yaml:"half_life" json:"half_life"`   // recency halves every HalfLife
	ReturnCap float64       `yaml:"return_cap" json:"return_cap"` // |return %| is clamped to this
}

var DefaultConfig = RankConfig{
	Recency:   10.0,
	Likes:     2.0,
	Shares:    3.0,
	Return:    0.1,
	HalfLife:  24 * time.Hour,
	ReturnCap: 50.0,
}

// RecencyDecay is 1 for a brand new pitch and halves every halfLife.
// Pitches from the future count as brand new.
func RecencyDecay(age, halfLife time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	if halfLife <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(age)/float64(halfLife))
}

// ClampReturn keeps the sign of ret and caps its magnitude.
func ClampReturn(ret, limit float64) float64 {
	if math.IsNaN(ret) {
		return 0
	}
	if limit <= 0 {
		return ret
	}
	return math.Copysign(math.Min(math.Abs(ret), limit), ret)
}

// CalculateScore combines recency, log-damped engagement and the capped
// return percentage into a single feed score.
func CalculateScore(cfg RankConfig, age time.Duration, likes, shares int, ret float64) float64 {
	score := cfg.Recency * RecencyDecay(age, cfg.HalfLife)
	score += cfg.Likes * math.Log1p(float64(max(likes, 0)))
	score += cfg.Shares * math.Log1p(float64(max(shares, 0)))
	score += cfg.Return * ClampReturn(ret, cfg.ReturnCap)
	return score
}
