package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	mqcontracts "carecircle/contracts/mq"
	"carecircle/internal/model"
	"carecircle/pkg/otel"
)

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// ListByUser 最新在前，带触发者
func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.NotificationView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT n.id, n.user_id, n.type, n.source_table, n.source_id, n.actor_id,
		       n.title, n.content, n.is_read, n.created_at, n.updated_at,
		       a.id, a.name
		FROM notifications n
		LEFT JOIN profiles a ON a.id = n.actor_id
		WHERE n.user_id = $1
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.NotificationView, error) {
		var (
			v         model.NotificationView
			actorID   *uuid.UUID
			actorName *string
		)
		err := row.Scan(&v.ID, &v.UserID, &v.Type, &v.SourceTable, &v.SourceID, &v.ActorID,
			&v.Title, &v.Content, &v.IsRead, &v.CreatedAt, &v.UpdatedAt,
			&actorID, &actorName)
		if err != nil {
			return v, err
		}
		if actorID != nil && actorName != nil {
			v.Actor = &model.ActorSummary{ID: *actorID, Name: *actorName}
		}
		v.Destination = v.Notification.Destination()
		return v, nil
	})
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := otel.WithDBSpan(ctx, "notification.count_unread", "notifications", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, `
			SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE
		`, userID).Scan(&n)
	})
	return n, err
}

// MarkAsRead 只能标记自己的通知；不存在或不属于该用户返回 ErrNotFound
func (r *NotificationRepository) MarkAsRead(ctx context.Context, userID uuid.UUID, id int64) (flipped bool, err error) {
	err = inTx(ctx, r.db, func(tx pgx.Tx) error {
		var wasRead bool
		err := tx.QueryRow(ctx, `
			SELECT is_read FROM notifications WHERE id = $1 AND user_id = $2 FOR UPDATE
		`, id, userID).Scan(&wasRead)
		if err != nil {
			return notFound(err)
		}
		if wasRead {
			return nil
		}

		if _, err := tx.Exec(ctx, `
			UPDATE notifications SET is_read = TRUE, updated_at = NOW() WHERE id = $1
		`, id); err != nil {
			return fmt.Errorf("mark notification read: %w", err)
		}
		flipped = true

		return enqueue(ctx, tx, changeEvent(ctx, "notifications", mqcontracts.ChangeUpdate,
			fmt.Sprint(id), map[string]string{"user_id": userID.String()}))
	})
	return flipped, err
}

// MarkAllAsRead 把用户所有未读置为已读，返回影响行数
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE notifications SET is_read = TRUE, updated_at = NOW()
			WHERE user_id = $1 AND is_read = FALSE
		`, userID)
		if err != nil {
			return fmt.Errorf("mark all notifications read: %w", err)
		}
		n = tag.RowsAffected()
		if n == 0 {
			return nil
		}
		return enqueue(ctx, tx, changeEvent(ctx, "notifications", mqcontracts.ChangeUpdate,
			"", map[string]string{"user_id": userID.String()}))
	})
	return n, err
}

// Insert 由通知触发器调用；event_id 重复时不插入，返回 false
func (r *NotificationRepository) Insert(ctx context.Context, n *model.Notification, eventID string) (bool, error) {
	inserted := false
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO notifications (user_id, type, source_table, source_id, actor_id, title, content, event_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (event_id) DO NOTHING
			RETURNING id, is_read, created_at, updated_at
		`, n.UserID, n.Type, n.SourceTable, n.SourceID, n.ActorID, n.Title, n.Content, eventID,
		).Scan(&n.ID, &n.IsRead, &n.CreatedAt, &n.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		inserted = true

		return enqueue(ctx, tx, changeEvent(ctx, "notifications", mqcontracts.ChangeInsert,
			fmt.Sprint(n.ID), map[string]string{"user_id": n.UserID.String()}))
	})
	return inserted, err
}
