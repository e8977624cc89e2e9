package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationReaction        = "reaction"
	NotificationComment         = "comment"
	NotificationMedicalReminder = "medical_reminder"
	NotificationTask            = "task"
)

type Notification struct {
	ID          int64      `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Type        string     `json:"type"`
	SourceTable string     `json:"source_table"`
	SourceID    uuid.UUID  `json:"source_id"`
	ActorID     *uuid.UUID `json:"actor_id,omitempty"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	IsRead      bool       `json:"is_read"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ActorSummary 触发通知的用户
type ActorSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// NotificationView 列表项，带触发者与跳转目标
type NotificationView struct {
	Notification
	Actor       *ActorSummary `json:"actor,omitempty"`
	Destination string        `json:"destination,omitempty"`
}

// Destination 通知点击后的目标路由；问题相关的通知跳到对应帖子
func (n *Notification) Destination() string {
	switch n.Type {
	case NotificationReaction, NotificationComment:
		if n.SourceTable == "questions" {
			return "/forum/" + n.SourceID.String()
		}
		return ""
	case NotificationMedicalReminder:
		return "/reminders"
	case NotificationTask:
		return "/tasks"
	default:
		return ""
	}
}
