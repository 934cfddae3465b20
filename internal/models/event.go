package models

import (
	"time"
)

type EventType string

const (
	EventPitchCreated   EventType = "pitch_created"
	EventCommentCreated EventType = "comment_created"
	EventPitchLiked     EventType = "pitch_liked"
	EventCommentLiked   EventType = "comment_liked"
	EventPitchShared    EventType = "pitch_shared"
)

// Event is one append-only ledger entry. (ActorID, TargetID, Type) is unique.
// OwnerID and Class record whose counters the event touched, so the ledger
// alone is enough to rebuild every counter.
type Event struct {
	Seq       uint       `gorm:"primaryKey;autoIncrement" json:"seq"`
	ID        string     `gorm:"type:varchar(36);uniqueIndex;not null" json:"id"`
	ActorID   string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_event_key" json:"actor_id"`
	TargetID  string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_event_key" json:"target_id"`
	Type      EventType  `gorm:"type:varchar(20);not null;uniqueIndex:idx_event_key" json:"type"`
	OwnerID   string     `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	PitchID   string     `gorm:"type:varchar(36);not null;index" json:"pitch_id"`
	Class     AssetClass `gorm:"type:varchar(10);not null" json:"class"`
	CreatedAt time.Time  `json:"created_at"`
}

// TableName keeps the ledger name stable regardless of the Go type name.
func (Event) TableName() string {
	return "event_ledger"
}
