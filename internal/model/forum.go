package model

import (
	"time"

	"github.com/google/uuid"
)

type Question struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// QuestionSummary 列表项：作者与评论数
type QuestionSummary struct {
	Question
	Author        ProfileSummary `json:"author"`
	CommentsCount int64          `json:"comments_count"`
}

// QuestionDetail 详情：作者与点赞状态
type QuestionDetail struct {
	Question
	Author    ProfileSummary `json:"author"`
	Reactions ReactionCounts `json:"reactions"`
}

type Comment struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	UserID     uuid.UUID `json:"user_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// CommentView 评论及作者与点赞状态
type CommentView struct {
	Comment
	Author    ProfileSummary `json:"author"`
	Reactions ReactionCounts `json:"reactions"`
}
