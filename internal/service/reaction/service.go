// Package reaction implements the like/dislike toggle for questions and comments.
package reaction

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/model"
	"carecircle/internal/repository"
	"carecircle/pkg/logger"
	"carecircle/pkg/metrics"
)

type store interface {
	Toggle(ctx context.Context, subjectType string, subjectID, userID uuid.UUID, reactionType string) (*repository.ToggleResult, error)
	Counts(ctx context.Context, subjectType string, subjectID, userID uuid.UUID) (model.ReactionCounts, error)
}

type Service struct {
	store  store
	logger *zap.Logger
}

func NewService(store store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

func validate(subjectType, reactionType string) error {
	if !model.ValidSubject(subjectType) {
		return apperr.Validation("subject must be question or comment")
	}
	if reactionType != "" && !model.ValidReaction(reactionType) {
		return apperr.Validation("reaction_type must be like or dislike")
	}
	return nil
}

// Toggle 切换反应，然后无条件重新统计，返回服务端的权威状态
func (s *Service) Toggle(ctx context.Context, subjectType string, subjectID, userID uuid.UUID, reactionType string) (*model.ReactionState, error) {
	if reactionType == "" {
		return nil, apperr.Validation("reaction_type is required")
	}
	if err := validate(subjectType, reactionType); err != nil {
		return nil, err
	}

	res, err := s.store.Toggle(ctx, subjectType, subjectID, userID, reactionType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(subjectType + " not found")
		}
		return nil, apperr.Internal("failed to update reaction", err)
	}
	metrics.IncrementReactionToggle(subjectType, res.Action)

	logger.WithTrace(ctx, s.logger).Debug("Reaction toggled",
		zap.String("subject_type", subjectType),
		zap.String("subject_id", subjectID.String()),
		zap.String("user_id", userID.String()),
		zap.String("action", res.Action),
	)

	state, err := s.State(ctx, subjectType, subjectID, userID)
	if err != nil {
		return nil, err
	}
	state.Action = res.Action
	return state, nil
}

// State 重新拉取计数与当前用户的反应
func (s *Service) State(ctx context.Context, subjectType string, subjectID, userID uuid.UUID) (*model.ReactionState, error) {
	if err := validate(subjectType, ""); err != nil {
		return nil, err
	}
	counts, err := s.store.Counts(ctx, subjectType, subjectID, userID)
	if err != nil {
		return nil, apperr.Internal("failed to load reactions", err)
	}
	return &model.ReactionState{
		SubjectType:    subjectType,
		SubjectID:      subjectID,
		ReactionCounts: counts,
	}, nil
}
