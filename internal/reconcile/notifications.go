// Package reconcile keeps client-side projections (unread count, reaction
// counts, nearby patients) in step with the server.
//
// Local state is advisory: every refetch overwrites it unconditionally and
// change feed events are only used as a trigger to refetch.
package reconcile

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "carecircle/contracts/mq"
	"carecircle/internal/model"
)

// Feed 变更订阅
type Feed interface {
	Subscribe(ctx context.Context, table, filter string) (<-chan mqcontracts.ChangeEvent, error)
}

type NotificationAPI interface {
	Feed
	Notifications(ctx context.Context) ([]model.NotificationView, error)
	UnreadCount(ctx context.Context) (int64, error)
	MarkAsRead(ctx context.Context, id int64) error
	MarkAllAsRead(ctx context.Context) error
}

// NotificationBoard 本地通知列表与未读数
type NotificationBoard struct {
	api    NotificationAPI
	userID uuid.UUID
	logger *zap.Logger

	mu       sync.Mutex
	items    []model.NotificationView
	unread   int64
	onChange func([]model.NotificationView, int64)
}

func NewNotificationBoard(api NotificationAPI, userID uuid.UUID, logger *zap.Logger) *NotificationBoard {
	return &NotificationBoard{api: api, userID: userID, logger: logger}
}

// OnChange 注册每次 Resync 成功后的回调
func (b *NotificationBoard) OnChange(fn func(items []model.NotificationView, unread int64)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Snapshot 返回本地列表副本与未读数
func (b *NotificationBoard) Snapshot() ([]model.NotificationView, int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.items), b.unread
}

// Resync 全量拉取并覆盖本地状态。并发的 Resync 之间不做去重，最后返回的结果生效
func (b *NotificationBoard) Resync(ctx context.Context) error {
	items, err := b.api.Notifications(ctx)
	if err != nil {
		return err
	}
	unread, err := b.api.UnreadCount(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.items = items
	b.unread = unread
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(slices.Clone(items), unread)
	}
	return nil
}

// MarkAsRead 先更新本地（未读数减一，不低于 0），请求失败只记录日志，不回滚
func (b *NotificationBoard) MarkAsRead(ctx context.Context, id int64) error {
	b.mu.Lock()
	decrement := true
	for i := range b.items {
		if b.items[i].ID == id {
			// 本地已是已读的不再重复扣减
			decrement = !b.items[i].IsRead
			b.items[i].IsRead = true
			break
		}
	}
	if decrement {
		b.unread = max(0, b.unread-1)
	}
	b.mu.Unlock()

	if err := b.api.MarkAsRead(ctx, id); err != nil {
		b.logger.Error("Error marking notification as read",
			zap.Int64("notification_id", id),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// MarkAllAsRead 本地全部置为已读、未读数归零；失败不回滚
func (b *NotificationBoard) MarkAllAsRead(ctx context.Context) error {
	b.mu.Lock()
	for i := range b.items {
		b.items[i].IsRead = true
	}
	b.unread = 0
	b.mu.Unlock()

	if err := b.api.MarkAllAsRead(ctx); err != nil {
		b.logger.Error("Error marking all notifications as read", zap.Error(err))
		return err
	}
	return nil
}

// Follow 订阅自己的通知变更，每个事件触发一次 Resync，直到订阅结束
func (b *NotificationBoard) Follow(ctx context.Context) error {
	events, err := b.api.Subscribe(ctx, "notifications", "user_id=eq."+b.userID.String())
	if err != nil {
		return err
	}
	for ev := range events {
		b.logger.Debug("Notification change received", zap.String("type", ev.Type))
		if err := b.Resync(ctx); err != nil {
			b.logger.Warn("Notification resync failed", zap.Error(err))
		}
	}
	return ctx.Err()
}
