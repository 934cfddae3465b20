package models

import (
	"time"
)

type Pitch struct {
	ID         string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     string        `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Asset      AssetSnapshot `gorm:"embedded" json:"asset"`
	Thesis     string        `gorm:"type:text;not null" json:"thesis"`
	PitchPrice float64       `gorm:"not null" json:"pitch_price"`
	LikeCount  int           `gorm:"default:0;not null" json:"like_count"`
	ShareCount int           `gorm:"default:0;not null" json:"share_count"`
	ThreadID   string        `gorm:"type:varchar(36);not null;uniqueIndex" json:"thread_id"`
	CreatedAt  time.Time     `gorm:"index" json:"created_at"`
}

// Return computes the percentage return against currentPrice.
func (p *Pitch) Return(currentPrice float64) float64 {
	if p.PitchPrice == 0 {
		return 0
	}
	return (currentPrice - p.PitchPrice) / p.PitchPrice * 100
}
