package utils

import (
	"time"
)

// Tier is a reputation level derived from total karma. Weight multiplies a
// member's pitches when they are sampled for discovery.
type Tier struct {
	Name     string  `json:"name"`
	MinKarma int     `json:"min_karma"`
	Color    string  `json:"color"`
	Weight   float64 `json:"weight"`
}

// Tiers is ordered from highest to lowest threshold.
var Tiers = []Tier{
	{Name: "diamond", MinKarma: 1000, Color: "#B9F2FF", Weight: 2.5},
	{Name: "platinum", MinKarma: 500, Color: "#E5E4E2", Weight: 2.0},
	{Name: "gold", MinKarma: 250, Color: "#FFD700", Weight: 1.5},
	{Name: "silver", MinKarma: 100, Color: "#C0C0C0", Weight: 1.2},
	{Name: "bronze", MinKarma: 0, Color: "#CD7F32", Weight: 1.0},
}

// GetUserTier returns the highest tier whose threshold karma reaches.
// Negative karma cannot happen but maps to bronze anyway.
func GetUserTier(karma int) Tier {
	for _, t := range Tiers {
		if karma >= t.MinKarma {
			return t
		}
	}
	return Tiers[len(Tiers)-1]
}

// NextTier is the tier above the current one and the karma still missing.
type NextTier struct {
	Name         string `json:"name"`
	PointsNeeded int    `json:"points_needed"`
}

// GetNextTier returns nil once karma has reached the top tier.
func GetNextTier(karma int) *NextTier {
	for i := len(Tiers) - 1; i >= 0; i-- {
		if Tiers[i].MinKarma > karma {
			return &NextTier{Name: Tiers[i].Name, PointsNeeded: Tiers[i].MinKarma - karma}
		}
	}
	return nil
}

// GetDaysSinceJoined counts whole days between createdAt and now.
func GetDaysSinceJoined(createdAt, now time.Time) int {
	return int(now.Sub(createdAt).Hours() / 24)
}
