package reconcile

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecircle/internal/model"
)

type ReactionAPI interface {
	Feed
	React(ctx context.Context, subjectType string, subjectID uuid.UUID, reactionType string) (*model.ReactionState, error)
	Reactions(ctx context.Context, subjectType string, subjectID uuid.UUID) (*model.ReactionState, error)
}

type subjectKey struct {
	subjectType string
	id          uuid.UUID
}

// ReactionBoard 各主体的点赞/点踩计数，只保存服务端返回的值
type ReactionBoard struct {
	api    ReactionAPI
	logger *zap.Logger

	mu     sync.Mutex
	states map[subjectKey]model.ReactionCounts
}

func NewReactionBoard(api ReactionAPI, logger *zap.Logger) *ReactionBoard {
	return &ReactionBoard{api: api, logger: logger, states: make(map[subjectKey]model.ReactionCounts)}
}

func (b *ReactionBoard) Counts(subjectType string, id uuid.UUID) (model.ReactionCounts, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.states[subjectKey{subjectType, id}]
	return c, ok
}

func (b *ReactionBoard) store(s *model.ReactionState) {
	b.mu.Lock()
	b.states[subjectKey{s.SubjectType, s.SubjectID}] = s.ReactionCounts
	b.mu.Unlock()
}

// Toggle 不做本地预估；失败时保留原状态
func (b *ReactionBoard) Toggle(ctx context.Context, subjectType string, id uuid.UUID, reactionType string) (*model.ReactionState, error) {
	s, err := b.api.React(ctx, subjectType, id, reactionType)
	if err != nil {
		b.logger.Error("Error handling reaction",
			zap.String("subject_type", subjectType),
			zap.String("subject_id", id.String()),
			zap.Error(err),
		)
		return nil, err
	}
	b.store(s)
	return s, nil
}

func (b *ReactionBoard) Refresh(ctx context.Context, subjectType string, id uuid.UUID) error {
	s, err := b.api.Reactions(ctx, subjectType, id)
	if err != nil {
		return err
	}
	b.store(s)
	return nil
}

// Follow 订阅某个问题下的反应变更，收到事件后刷新对应主体
func (b *ReactionBoard) Follow(ctx context.Context, questionID uuid.UUID) error {
	filter := "question_id=eq." + questionID.String()
	questions, err := b.api.Subscribe(ctx, "question_reactions", filter)
	if err != nil {
		return err
	}
	comments, err := b.api.Subscribe(ctx, "comment_reactions", filter)
	if err != nil {
		return err
	}

	for questions != nil || comments != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-questions:
			if !ok {
				questions = nil
				continue
			}
			b.refreshLogged(ctx, model.SubjectQuestion, questionID)
		case ev, ok := <-comments:
			if !ok {
				comments = nil
				continue
			}
			id, err := uuid.Parse(ev.Keys["comment_id"])
			if err != nil {
				continue
			}
			b.refreshLogged(ctx, model.SubjectComment, id)
		}
	}
	return nil
}

func (b *ReactionBoard) refreshLogged(ctx context.Context, subjectType string, id uuid.UUID) {
	if err := b.Refresh(ctx, subjectType, id); err != nil {
		b.logger.Warn("Reaction refresh failed",
			zap.String("subject_type", subjectType),
			zap.String("subject_id", id.String()),
			zap.Error(err),
		)
	}
}
