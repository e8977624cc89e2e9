package mq

import "time"

// Meta 所有领域事件共有的字段
type Meta struct {
	EventID    string    `json:"event_id"`
	TraceID    string    `json:"trace_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ReactionChangedPayload 点赞/点踩被添加或切换
type ReactionChangedPayload struct {
	Meta
	SubjectType  string `json:"subject_type"` // question / comment
	SubjectID    string `json:"subject_id"`
	QuestionID   string `json:"question_id"`
	ActorID      string `json:"actor_id"`
	ReactionType string `json:"reaction_type"`
	Action       string `json:"action"` // added / switched
}

// CommentCreatedPayload 问题下新增评论
type CommentCreatedPayload struct {
	Meta
	CommentID  string `json:"comment_id"`
	QuestionID string `json:"question_id"`
	ActorID    string `json:"actor_id"`
	Content    string `json:"content"`
}

// TaskAssignedPayload 照护者给患者分配任务
type TaskAssignedPayload struct {
	Meta
	TaskID      string    `json:"task_id"`
	PatientID   string    `json:"patient_id"`
	CaregiverID string    `json:"caregiver_id"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
}

// ReminderCreatedPayload 照护者创建用药提醒
type ReminderCreatedPayload struct {
	Meta
	ReminderID  string    `json:"reminder_id"`
	PatientID   string    `json:"patient_id"`
	CaregiverID string    `json:"caregiver_id"`
	Description string    `json:"description"`
	Time        time.Time `json:"time"`
}
