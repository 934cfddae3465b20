package models

// KarmaWeights is the policy table karma is computed from.
// Tests depend on the 10:2:1 ratio of DefaultKarmaWeights.
type KarmaWeights struct {
	Pitch int `yaml:"pitch" json:"pitch"`
	Like  int `yaml:"like" json:"like"`
	Share int `yaml:"share" json:"share"`
}

var DefaultKarmaWeights = KarmaWeights{
	Pitch: 10,
	Like:  2,
	Share: 1,
}

// Karma is a pure function of the counters, never of event history.
func (w KarmaWeights) Karma(t Tally) int {
	return t.Pitches*w.Pitch + t.Likes*w.Like + t.Shares*w.Share
}
