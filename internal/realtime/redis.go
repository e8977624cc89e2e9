package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	mqcontracts "carecircle/contracts/mq"
	"carecircle/pkg/metrics"
)

const channelPrefix = "changes:"

// Channel 某张表的 Redis pub/sub 频道
func Channel(table string) string {
	return channelPrefix + table
}

// RedisPublisher 由 worker 把变更事件广播给所有 API 实例
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev mqcontracts.ChangeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := p.rdb.Publish(ctx, Channel(ev.Table), body).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

// Listen 订阅 changes:* 并喂给 hub，直到 ctx 取消
func Listen(ctx context.Context, rdb *redis.Client, hub *Hub, logger *zap.Logger) error {
	pubsub := rdb.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe change channels: %w", err)
	}
	logger.Info("Listening for change events", zap.String("pattern", channelPrefix+"*"))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev mqcontracts.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warn("Malformed change event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if ev.Table == "" {
				ev.Table = strings.TrimPrefix(msg.Channel, channelPrefix)
			}
			hub.Publish(ev)
		}
	}
}

// ChangePublisher 广播变更事件
type ChangePublisher interface {
	Publish(ctx context.Context, ev mqcontracts.ChangeEvent) error
}

// Relay 消费 MQ 的 change.* 事件转发到 Redis
type Relay struct {
	publisher ChangePublisher
	logger    *zap.Logger
}

func NewRelay(publisher ChangePublisher, logger *zap.Logger) *Relay {
	return &Relay{publisher: publisher, logger: logger}
}

// Handle 作为 mq.MessageHandler 使用
func (r *Relay) Handle(ctx context.Context, data json.RawMessage) error {
	var ev mqcontracts.ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		// 格式错误重试也没用，直接丢弃
		r.logger.Error("Dropping malformed change event", zap.Error(err))
		return nil
	}
	if err := r.publisher.Publish(ctx, ev); err != nil {
		return err
	}
	metrics.IncrementChangeEvent(ev.Table, "relayed")
	return nil
}
