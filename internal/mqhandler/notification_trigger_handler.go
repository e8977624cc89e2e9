package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "carecircle/contracts/mq"
	"carecircle/internal/model"
	"carecircle/pkg/logger"
	"carecircle/pkg/metrics"
	"carecircle/pkg/mq"
	"carecircle/pkg/util"
)

const triggerHandlerName = "notification_trigger"

// TriggerRoutingKeys 触发站内通知的领域事件
var TriggerRoutingKeys = []string{
	mqcontracts.RoutingReactionChanged,
	mqcontracts.RoutingCommentCreated,
	mqcontracts.RoutingTaskAssigned,
	mqcontracts.RoutingReminderCreated,
}

type notificationStore interface {
	Insert(ctx context.Context, n *model.Notification, eventID string) (bool, error)
}

type ownerLookup interface {
	OwnerOf(ctx context.Context, subjectType string, subjectID uuid.UUID) (owner, questionID uuid.UUID, err error)
}

type profileLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
}

type deduper interface {
	AcquireOnce(ctx context.Context, handler, eventID string) bool
	Release(ctx context.Context, handler, eventID string)
}

type retryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type deadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError, failedAt string) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

type mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// TriggerDeps 构造 NotificationTriggerHandler 所需的依赖
type TriggerDeps struct {
	Notifications notificationStore
	Owners        ownerLookup
	Profiles      profileLookup
	Dedup         deduper
	Retries       retryCounter
	DLQ           deadLetterPublisher
	Cache         cacheInvalidator
	Mailer        mailer
	// DLQ 路由到消费队列名对应的死信队列
	Queue      string
	MaxRetries int64
}

// NotificationTriggerHandler 根据领域事件为接收者写入通知，跳过自己触发的动作
type NotificationTriggerHandler struct {
	deps   TriggerDeps
	logger *zap.Logger
}

func NewNotificationTriggerHandler(deps TriggerDeps, logger *zap.Logger) *NotificationTriggerHandler {
	return &NotificationTriggerHandler{deps: deps, logger: logger}
}

// Handle 作为 mq.MessageHandler 使用，按 routing key 分派
func (h *NotificationTriggerHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)
	routingKey := mq.RoutingKeyFromContext(ctx)

	var meta mqcontracts.Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return h.fail(ctx, routingKey, "", raw, err)
	}
	if meta.EventID == "" {
		log.Warn("Event without id dropped", zap.String("routing_key", routingKey))
		return nil
	}

	if !h.deps.Dedup.AcquireOnce(ctx, triggerHandlerName, meta.EventID) {
		return nil
	}

	n, err := h.build(ctx, routingKey, raw)
	if err != nil {
		h.deps.Dedup.Release(ctx, triggerHandlerName, meta.EventID)
		return h.fail(ctx, routingKey, meta.EventID, raw, err)
	}
	if n == nil {
		log.Debug("No recipient for event",
			zap.String("routing_key", routingKey),
			zap.String("event_id", meta.EventID),
		)
		return nil
	}

	inserted, err := h.deps.Notifications.Insert(ctx, n, meta.EventID)
	if err != nil {
		h.deps.Dedup.Release(ctx, triggerHandlerName, meta.EventID)
		return h.fail(ctx, routingKey, meta.EventID, raw, err)
	}
	_ = h.deps.Retries.Reset(ctx, util.FormatRetryKey(triggerHandlerName, meta.EventID))
	if !inserted {
		return nil
	}

	metrics.IncrementNotificationCreated(n.Type)
	if err := h.deps.Cache.Invalidate(ctx, n.UserID); err != nil {
		log.Warn("Failed to invalidate unread cache", zap.String("user_id", n.UserID.String()), zap.Error(err))
	}

	log.Info("Notification created",
		zap.Int64("notification_id", n.ID),
		zap.String("type", n.Type),
		zap.String("user_id", n.UserID.String()),
		zap.String("event_id", meta.EventID),
	)

	if n.Type == model.NotificationMedicalReminder {
		h.mail(ctx, n)
	}
	return nil
}

// build 返回 nil 表示无需通知（自己触发的动作）
func (h *NotificationTriggerHandler) build(ctx context.Context, routingKey string, raw json.RawMessage) (*model.Notification, error) {
	switch routingKey {
	case mqcontracts.RoutingReactionChanged:
		var p mqcontracts.ReactionChangedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return h.fromReaction(ctx, p)
	case mqcontracts.RoutingCommentCreated:
		var p mqcontracts.CommentCreatedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return h.fromComment(ctx, p)
	case mqcontracts.RoutingTaskAssigned:
		var p mqcontracts.TaskAssignedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return fromTask(p)
	case mqcontracts.RoutingReminderCreated:
		var p mqcontracts.ReminderCreatedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return fromReminder(p)
	default:
		return nil, fmt.Errorf("unexpected routing key %q: %w", routingKey, errPermanent)
	}
}

func (h *NotificationTriggerHandler) fromReaction(ctx context.Context, p mqcontracts.ReactionChangedPayload) (*model.Notification, error) {
	subjectID, err := uuid.Parse(p.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("subject_id: %w", errPermanent)
	}
	actor, err := uuid.Parse(p.ActorID)
	if err != nil {
		return nil, fmt.Errorf("actor_id: %w", errPermanent)
	}

	owner, questionID, err := h.deps.Owners.OwnerOf(ctx, p.SubjectType, subjectID)
	if err != nil {
		return nil, err
	}
	if owner == actor {
		return nil, nil
	}

	verb := "liked"
	if p.ReactionType == model.ReactionDislike {
		verb = "disliked"
	}
	return &model.Notification{
		UserID:      owner,
		Type:        model.NotificationReaction,
		SourceTable: "questions",
		SourceID:    questionID,
		ActorID:     &actor,
		Title:       "New reaction",
		Content:     fmt.Sprintf("Someone %s your %s", verb, p.SubjectType),
	}, nil
}

func (h *NotificationTriggerHandler) fromComment(ctx context.Context, p mqcontracts.CommentCreatedPayload) (*model.Notification, error) {
	questionID, err := uuid.Parse(p.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("question_id: %w", errPermanent)
	}
	actor, err := uuid.Parse(p.ActorID)
	if err != nil {
		return nil, fmt.Errorf("actor_id: %w", errPermanent)
	}

	owner, _, err := h.deps.Owners.OwnerOf(ctx, model.SubjectQuestion, questionID)
	if err != nil {
		return nil, err
	}
	if owner == actor {
		return nil, nil
	}

	return &model.Notification{
		UserID:      owner,
		Type:        model.NotificationComment,
		SourceTable: "questions",
		SourceID:    questionID,
		ActorID:     &actor,
		Title:       "New comment",
		Content:     truncate(p.Content, 120),
	}, nil
}

func fromTask(p mqcontracts.TaskAssignedPayload) (*model.Notification, error) {
	taskID, patient, caregiver, err := parseCareIDs(p.TaskID, p.PatientID, p.CaregiverID)
	if err != nil {
		return nil, err
	}
	if patient == caregiver {
		return nil, nil
	}
	return &model.Notification{
		UserID:      patient,
		Type:        model.NotificationTask,
		SourceTable: "tasks",
		SourceID:    taskID,
		ActorID:     &caregiver,
		Title:       "New task",
		Content:     fmt.Sprintf("%s (starts %s)", p.Description, p.StartTime.UTC().Format(time.RFC1123)),
	}, nil
}

func fromReminder(p mqcontracts.ReminderCreatedPayload) (*model.Notification, error) {
	reminderID, patient, caregiver, err := parseCareIDs(p.ReminderID, p.PatientID, p.CaregiverID)
	if err != nil {
		return nil, err
	}
	if patient == caregiver {
		return nil, nil
	}
	return &model.Notification{
		UserID:      patient,
		Type:        model.NotificationMedicalReminder,
		SourceTable: "medical_reminders",
		SourceID:    reminderID,
		ActorID:     &caregiver,
		Title:       "Medical reminder",
		Content:     fmt.Sprintf("%s at %s", p.Description, p.Time.UTC().Format(time.RFC1123)),
	}, nil
}

func parseCareIDs(source, patient, caregiver string) (uuid.UUID, uuid.UUID, uuid.UUID, error) {
	var ids [3]uuid.UUID
	for i, s := range []string{source, patient, caregiver} {
		id, err := uuid.Parse(s)
		if err != nil {
			return uuid.Nil, uuid.Nil, uuid.Nil, fmt.Errorf("invalid id %q: %w", s, errPermanent)
		}
		ids[i] = id
	}
	return ids[0], ids[1], ids[2], nil
}

// mail 邮件失败不影响站内通知
func (h *NotificationTriggerHandler) mail(ctx context.Context, n *model.Notification) {
	if h.deps.Mailer == nil || h.deps.Profiles == nil {
		return
	}
	p, err := h.deps.Profiles.FindByID(ctx, n.UserID)
	if err != nil {
		h.logger.Warn("Reminder recipient lookup failed", zap.String("user_id", n.UserID.String()), zap.Error(err))
		return
	}
	if err := h.deps.Mailer.Send(ctx, p.Email, n.Title, n.Content); err != nil {
		h.logger.Warn("Reminder mail failed", zap.String("user_id", n.UserID.String()), zap.Error(err))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
