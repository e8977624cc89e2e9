// Package notification serves the notification list, unread count and read-state mutations.
package notification

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

const DefaultListLimit = 100

type store interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.NotificationView, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, userID uuid.UUID, id int64) (bool, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type Service struct {
	store  store
	cache  UnreadCache
	logger *zap.Logger
}

func NewService(store store, cache UnreadCache, logger *zap.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]model.NotificationView, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	list, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperr.Internal("failed to load notifications", err)
	}
	if list == nil {
		list = []model.NotificationView{}
	}
	return list, nil
}

// UnreadCount 先查缓存，未命中再 COUNT(*)，按读取时的代数条件回填。
// 缓存读失败时直接查库且不回填。
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	log := logger.WithTrace(ctx, s.logger)

	entry, err := s.cache.Get(ctx, userID)
	cacheOK := err == nil
	switch {
	case err != nil:
		metrics.IncrementUnreadCache("error")
		log.Warn("Unread cache read failed", zap.Error(err))
	case entry.Hit:
		metrics.IncrementUnreadCache("hit")
		return entry.Count, nil
	default:
		metrics.IncrementUnreadCache("miss")
	}

	n, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperr.Internal("failed to count unread notifications", err)
	}
	if !cacheOK {
		return n, nil
	}
	stored, err := s.cache.Fill(ctx, userID, entry.Generation, n)
	switch {
	case err != nil:
		log.Warn("Unread cache write failed", zap.Error(err))
	case !stored:
		metrics.IncrementUnreadCache("stale")
		log.Debug("Unread count changed during refill, cache left empty",
			zap.String("user_id", userID.String()),
		)
	}
	return n, nil
}

// MarkAsRead 标记单条已读；已读的再次标记视为成功
func (s *Service) MarkAsRead(ctx context.Context, userID uuid.UUID, id int64) error {
	flipped, err := s.store.MarkAsRead(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("notification not found")
		}
		return apperr.Internal("failed to mark notification as read", err)
	}
	if flipped {
		metrics.AddNotificationsRead("single", 1)
		s.invalidate(ctx, userID)
	}
	return nil
}

// MarkAllAsRead 返回被翻转的条数
func (s *Service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.store.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, apperr.Internal("failed to mark notifications as read", err)
	}
	if n > 0 {
		metrics.AddNotificationsRead("all", n)
		s.invalidate(ctx, userID)
	}
	return n, nil
}

func (s *Service) invalidate(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Unread cache invalidation failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}
