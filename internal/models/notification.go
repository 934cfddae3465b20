package models

import (
	"time"
)

type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationReply   NotificationType = "reply"
	NotificationFollow  NotificationType = "follow"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    string           `gorm:"type:varchar(36);not null;index" json:"user_id"` // Receiver
	ActorID   string           `gorm:"type:varchar(36);not null" json:"actor_id"`
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	TargetID  string           `gorm:"type:varchar(36)" json:"target_id"`
	IsRead    bool             `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
