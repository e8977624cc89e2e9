package mq

import (
	"context"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"carecircle/pkg/trace"
)

// DLQ 头
const (
	HeaderOriginalError      = "x-original-error"
	HeaderOriginalRoutingKey = "x-original-routing-key"
	HeaderFailedAt           = "x-failed-at"
)

// DLQName 消费队列对应的死信队列名
func DLQName(queueName string) string {
	return queueName + ".dlq"
}

// DeclareDLQQueue declares <queue>.dlq, bound to the dead letter exchange by the queue name.
func DeclareDLQQueue(ch *amqp091.Channel, queueName string) (amqp091.Queue, error) {
	q, err := ch.QueueDeclare(DLQName(queueName), true, false, false, false, nil)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare DLQ queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, queueName, DLQExchangeName, false, nil); err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to bind DLQ queue: %w", err)
	}
	return q, nil
}

// dlqHeaders 记录失败原因；消费时的原始 routing key 与 trace_id 从 ctx 中取
func dlqHeaders(ctx context.Context, originalError, failedAt string) amqp091.Table {
	headers := amqp091.Table{
		HeaderOriginalError: originalError,
		HeaderFailedAt:      failedAt,
	}
	if key := RoutingKeyFromContext(ctx); key != "" {
		headers[HeaderOriginalRoutingKey] = key
	}
	if traceID := trace.FromContext(ctx); traceID != "" {
		headers[traceHeader] = traceID
	}
	return headers
}

// PublishToDLQ publishes a message that exhausted its retries; routingKey is the consumer queue name.
func (p *Publisher) PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError, failedAt string) error {
	return p.publish(ctx, DLQExchangeName, routingKey, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         payload,
		DeliveryMode: amqp091.Persistent,
		Headers:      dlqHeaders(ctx, originalError, failedAt),
	})
}
