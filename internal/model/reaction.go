package model

import "github.com/google/uuid"

const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

const (
	SubjectQuestion = "question"
	SubjectComment  = "comment"
)

// 切换结果
const (
	ActionAdded    = "added"
	ActionRemoved  = "removed"
	ActionSwitched = "switched"
)

// ReactionCounts is always recomputed from the reaction rows.
type ReactionCounts struct {
	LikesCount    int64   `json:"likes_count"`
	DislikesCount int64   `json:"dislikes_count"`
	UserReaction  *string `json:"user_reaction"`
}

// ReactionState 一次切换后服务端的权威状态
type ReactionState struct {
	SubjectType string    `json:"subject_type"`
	SubjectID   uuid.UUID `json:"subject_id"`
	ReactionCounts
	Action string `json:"action,omitempty"`
}

func ValidReaction(t string) bool {
	return t == ReactionLike || t == ReactionDislike
}

func ValidSubject(s string) bool {
	return s == SubjectQuestion || s == SubjectComment
}

// ToggleAction 根据已有反应决定本次切换的动作：
// 没有 → added；相同 → removed；不同 → switched
func ToggleAction(existing *string, requested string) string {
	switch {
	case existing == nil:
		return ActionAdded
	case *existing == requested:
		return ActionRemoved
	default:
		return ActionSwitched
	}
}
