package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	mqcontracts "carecircle/contracts/mq"
	"carecircle/pkg/outbox"
	"carecircle/pkg/trace"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// OutboxEvent 随业务写入一起提交的事件
type OutboxEvent struct {
	AggregateType string
	AggregateID   string
	RoutingKey    string
	Payload       any
}

func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, pool, fn)
}

func enqueue(ctx context.Context, tx pgx.Tx, events ...OutboxEvent) error {
	for _, e := range events {
		if err := outbox.Enqueue(ctx, tx, e.AggregateType, e.AggregateID, e.RoutingKey, e.Payload); err != nil {
			return err
		}
	}
	return nil
}

// changeEvent 构造行变更事件，keys 只放过滤需要的列
func changeEvent(ctx context.Context, table, changeType, rowID string, keys map[string]string) OutboxEvent {
	if keys == nil {
		keys = map[string]string{}
	}
	if rowID != "" {
		keys["id"] = rowID
	}
	return OutboxEvent{
		AggregateType: table,
		AggregateID:   rowID,
		RoutingKey:    mqcontracts.ChangeRoutingKey(table),
		Payload: mqcontracts.ChangeEvent{
			TraceID:         trace.FromContext(ctx),
			Table:           table,
			Type:            changeType,
			Keys:            keys,
			CommitTimestamp: time.Now().UTC(),
		},
	}
}

// NewMeta 领域事件公共字段
func NewMeta(ctx context.Context) mqcontracts.Meta {
	return mqcontracts.Meta{
		EventID:    uuid.NewString(),
		TraceID:    trace.FromContext(ctx),
		OccurredAt: time.Now().UTC(),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
