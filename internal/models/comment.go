package models

import (
	"time"

	"github.com/lib/pq"
)

// Thread is the root node of a pitch's comment forest. CommentIDs holds the
// top-level comments in arrival order.
type Thread struct {
	ID         string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PitchID    string         `gorm:"type:varchar(36);not null;uniqueIndex" json:"pitch_id"`
	CommentIDs pq.StringArray `gorm:"type:text[]" json:"comment_ids"`
}

type Comment struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PitchID   string         `gorm:"type:varchar(36);not null;index" json:"pitch_id"`
	UserID    string         `gorm:"type:varchar(36);not null;index" json:"user_id"`
	ParentID  *string        `gorm:"type:varchar(36);index" json:"parent_id"` // nil for top-level comments
	Content   string         `gorm:"type:text;not null" json:"content"`
	LikeCount int            `gorm:"default:0;not null" json:"like_count"`
	ChildIDs  pq.StringArray `gorm:"type:text[]" json:"child_ids"` // direct replies only
	CreatedAt time.Time      `json:"created_at"`
}
