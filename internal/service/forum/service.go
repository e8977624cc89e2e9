// Package forum serves questions and their comment threads.
package forum

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/model"
	"carecircle/internal/repository"
	"carecircle/pkg/logger"
)

const DefaultListLimit = 50

type questionStore interface {
	List(ctx context.Context, limit int) ([]model.QuestionSummary, error)
	Create(ctx context.Context, q *model.Question) error
	Get(ctx context.Context, id, viewerID uuid.UUID) (*model.QuestionDetail, error)
}

type commentStore interface {
	ListByQuestion(ctx context.Context, questionID, viewerID uuid.UUID) ([]model.CommentView, error)
	Create(ctx context.Context, c *model.Comment) error
}

type Service struct {
	questions questionStore
	comments  commentStore
	logger    *zap.Logger
}

func NewService(questions questionStore, comments commentStore, logger *zap.Logger) *Service {
	return &Service{questions: questions, comments: comments, logger: logger}
}

func (s *Service) ListQuestions(ctx context.Context, limit int) ([]model.QuestionSummary, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	list, err := s.questions.List(ctx, limit)
	if err != nil {
		return nil, apperr.Internal("failed to load questions", err)
	}
	if list == nil {
		list = []model.QuestionSummary{}
	}
	return list, nil
}

func (s *Service) Ask(ctx context.Context, userID uuid.UUID, title, content string) (*model.Question, error) {
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, apperr.Validation("title and content are required")
	}

	q := &model.Question{UserID: userID, Title: title, Content: content}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, apperr.Internal("failed to create question", err)
	}

	logger.WithTrace(ctx, s.logger).Info("Question created",
		zap.String("question_id", q.ID.String()),
		zap.String("user_id", userID.String()),
	)
	return q, nil
}

// Question 详情与评论一起返回
func (s *Service) Question(ctx context.Context, id, viewerID uuid.UUID) (*model.QuestionDetail, []model.CommentView, error) {
	detail, err := s.questions.Get(ctx, id, viewerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperr.NotFound("question not found")
		}
		return nil, nil, apperr.Internal("failed to load question", err)
	}

	comments, err := s.Comments(ctx, id, viewerID)
	if err != nil {
		return nil, nil, err
	}
	return detail, comments, nil
}

func (s *Service) Comments(ctx context.Context, questionID, viewerID uuid.UUID) ([]model.CommentView, error) {
	list, err := s.comments.ListByQuestion(ctx, questionID, viewerID)
	if err != nil {
		return nil, apperr.Internal("failed to load comments", err)
	}
	if list == nil {
		list = []model.CommentView{}
	}
	return list, nil
}

func (s *Service) AddComment(ctx context.Context, questionID, userID uuid.UUID, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("content is required")
	}

	c := &model.Comment{QuestionID: questionID, UserID: userID, Content: content}
	if err := s.comments.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("question not found")
		}
		return nil, apperr.Internal("failed to add comment", err)
	}
	return c, nil
}
