package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"carecircle/internal/repository"
	"carecircle/pkg/logger"
	"carecircle/pkg/util"
)

// errPermanent 标记无法通过重试恢复的事件
var errPermanent = errors.New("permanent event error")

// classify 在 util.IsRetryableError 基础上识别本包的永久错误
func classify(err error) (bool, string) {
	switch {
	case errors.Is(err, errPermanent):
		return false, "invalid_event"
	case errors.Is(err, repository.ErrNotFound):
		return false, "source_not_found"
	}
	return util.IsRetryableError(err)
}

// fail 可重试错误返回 err 让消息重新入队；超过次数或不可重试则进 DLQ 并 ack
func (h *NotificationTriggerHandler) fail(ctx context.Context, routingKey, eventID string, raw json.RawMessage, cause error) error {
	log := logger.WithTrace(ctx, h.logger).With(
		zap.String("routing_key", routingKey),
		zap.String("event_id", eventID),
	)

	retryable, kind := classify(cause)
	if retryable && eventID != "" {
		key := util.FormatRetryKey(triggerHandlerName, eventID)
		count, err := h.deps.Retries.IncrementAndGet(ctx, key)
		if err != nil {
			log.Warn("Retry counter unavailable", zap.Error(err))
			return cause
		}
		if util.ShouldRetry(count, h.deps.MaxRetries, true) {
			log.Warn("Event processing failed, will retry",
				zap.String("error_type", kind),
				zap.Int64("retry_count", count),
				zap.Error(cause),
			)
			return cause
		}
		_ = h.deps.Retries.Reset(ctx, key)
	}

	log.Error("Event moved to DLQ",
		zap.String("error_type", kind),
		zap.Bool("retryable", retryable),
		zap.Error(cause),
	)
	if err := h.deps.DLQ.PublishToDLQ(ctx, h.deps.Queue, raw, cause.Error(), time.Now().UTC().Format(time.RFC3339)); err != nil {
		log.Error("Failed to publish to DLQ", zap.Error(err))
		return cause
	}
	return nil
}
