package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "carecircle/contracts/mq"
	"carecircle/internal/model"
	"carecircle/internal/repository"
	"carecircle/pkg/mq"
)

type fakeNotifications struct {
	rows   []*model.Notification
	events map[string]bool
	err    error
}

func (f *fakeNotifications) Insert(ctx context.Context, n *model.Notification, eventID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.events[eventID] {
		return false, nil
	}
	f.events[eventID] = true
	n.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, n)
	return true, nil
}

type fakeOwners map[uuid.UUID][2]uuid.UUID

func (f fakeOwners) OwnerOf(ctx context.Context, subjectType string, subjectID uuid.UUID) (uuid.UUID, uuid.UUID, error) {
	v, ok := f[subjectID]
	if !ok {
		return uuid.Nil, uuid.Nil, repository.ErrNotFound
	}
	return v[0], v[1], nil
}

type fakeProfiles map[uuid.UUID]*model.Profile

func (f fakeProfiles) FindByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	if p, ok := f[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

type memDedup map[string]bool

func (d memDedup) AcquireOnce(ctx context.Context, handler, eventID string) bool {
	k := handler + ":" + eventID
	if d[k] {
		return false
	}
	d[k] = true
	return true
}

func (d memDedup) Release(ctx context.Context, handler, eventID string) {
	delete(d, handler+":"+eventID)
}

type memRetries map[string]int64

func (r memRetries) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	r[key]++
	return r[key], nil
}

func (r memRetries) Reset(ctx context.Context, key string) error {
	delete(r, key)
	return nil
}

type dlqRecorder struct {
	payloads [][]byte
}

func (d *dlqRecorder) PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError, failedAt string) error {
	d.payloads = append(d.payloads, payload)
	return nil
}

type invalidations []uuid.UUID

func (i *invalidations) Invalidate(ctx context.Context, userID uuid.UUID) error {
	*i = append(*i, userID)
	return nil
}

type sentMail struct {
	to []string
}

func (m *sentMail) Send(ctx context.Context, to, subject, body string) error {
	m.to = append(m.to, to)
	return nil
}

type harness struct {
	handler       *NotificationTriggerHandler
	notifications *fakeNotifications
	dlq           *dlqRecorder
	cache         *invalidations
	mail          *sentMail
	owners        fakeOwners
	profiles      fakeProfiles
}

func newHarness() *harness {
	h := &harness{
		notifications: &fakeNotifications{events: map[string]bool{}},
		dlq:           &dlqRecorder{},
		cache:         &invalidations{},
		mail:          &sentMail{},
		owners:        fakeOwners{},
		profiles:      fakeProfiles{},
	}
	h.handler = NewNotificationTriggerHandler(TriggerDeps{
		Notifications: h.notifications,
		Owners:        h.owners,
		Profiles:      h.profiles,
		Dedup:         memDedup{},
		Retries:       memRetries{},
		DLQ:           h.dlq,
		Cache:         h.cache,
		Mailer:        h.mail,
		Queue:         "notification.trigger",
		MaxRetries:    2,
	}, zap.NewNop())
	return h
}

func deliver(t *testing.T, h *harness, routingKey string, payload any) error {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return h.handler.Handle(mq.WithRoutingKey(context.Background(), routingKey), body)
}

func meta() mqcontracts.Meta {
	return mqcontracts.Meta{EventID: uuid.NewString(), OccurredAt: time.Now()}
}

func TestReactionNotifiesOwnerOnce(t *testing.T) {
	h := newHarness()
	owner, actor, question, comment := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	h.owners[comment] = [2]uuid.UUID{owner, question}

	p := mqcontracts.ReactionChangedPayload{
		Meta:         meta(),
		SubjectType:  model.SubjectComment,
		SubjectID:    comment.String(),
		QuestionID:   question.String(),
		ActorID:      actor.String(),
		ReactionType: model.ReactionLike,
		Action:       "added",
	}
	for i := 0; i < 2; i++ {
		if err := deliver(t, h, mqcontracts.RoutingReactionChanged, p); err != nil {
			t.Fatal(err)
		}
	}

	if len(h.notifications.rows) != 1 {
		t.Fatalf("redelivery must not duplicate, got %d notifications", len(h.notifications.rows))
	}
	n := h.notifications.rows[0]
	if n.UserID != owner || n.SourceID != question || n.Destination() != "/forum/"+question.String() {
		t.Fatalf("unexpected notification %+v", n)
	}
	if len(*h.cache) != 1 || (*h.cache)[0] != owner {
		t.Fatalf("unread cache not invalidated for owner: %v", *h.cache)
	}
}

func TestSelfActionsAreSkipped(t *testing.T) {
	h := newHarness()
	me, question := uuid.New(), uuid.New()
	h.owners[question] = [2]uuid.UUID{me, question}

	err := deliver(t, h, mqcontracts.RoutingCommentCreated, mqcontracts.CommentCreatedPayload{
		Meta:       meta(),
		CommentID:  uuid.NewString(),
		QuestionID: question.String(),
		ActorID:    me.String(),
		Content:    "answering myself",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(h.notifications.rows) != 0 {
		t.Fatalf("self comment produced %d notifications", len(h.notifications.rows))
	}
}

func TestReminderNotifiesPatientAndMails(t *testing.T) {
	h := newHarness()
	patient, caregiver := uuid.New(), uuid.New()
	h.profiles[patient] = &model.Profile{ID: patient, Email: "patient@example.com"}

	err := deliver(t, h, mqcontracts.RoutingReminderCreated, mqcontracts.ReminderCreatedPayload{
		Meta:        meta(),
		ReminderID:  uuid.NewString(),
		PatientID:   patient.String(),
		CaregiverID: caregiver.String(),
		Description: "Take insulin",
		Time:        time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(h.notifications.rows) != 1 || h.notifications.rows[0].Type != model.NotificationMedicalReminder {
		t.Fatalf("unexpected notifications %+v", h.notifications.rows)
	}
	if len(h.mail.to) != 1 || h.mail.to[0] != "patient@example.com" {
		t.Fatalf("mail sent to %v", h.mail.to)
	}
}

func TestTaskNotifiesPatient(t *testing.T) {
	h := newHarness()
	patient, caregiver := uuid.New(), uuid.New()

	err := deliver(t, h, mqcontracts.RoutingTaskAssigned, mqcontracts.TaskAssignedPayload{
		Meta:        meta(),
		TaskID:      uuid.NewString(),
		PatientID:   patient.String(),
		CaregiverID: caregiver.String(),
		Description: "Morning walk",
		StartTime:   time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(h.notifications.rows) != 1 || h.notifications.rows[0].UserID != patient {
		t.Fatalf("unexpected notifications %+v", h.notifications.rows)
	}
	if len(h.mail.to) != 0 {
		t.Fatal("only reminders are mailed")
	}
}

func TestPermanentFailureGoesToDLQ(t *testing.T) {
	h := newHarness()

	err := deliver(t, h, mqcontracts.RoutingReactionChanged, mqcontracts.ReactionChangedPayload{
		Meta:        meta(),
		SubjectType: model.SubjectQuestion,
		SubjectID:   uuid.NewString(),
		ActorID:     uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("permanent failure should be acked, got %v", err)
	}
	if len(h.dlq.payloads) != 1 {
		t.Fatalf("expected 1 DLQ message, got %d", len(h.dlq.payloads))
	}
}

func TestRetryableFailureRequeuesThenDeadLetters(t *testing.T) {
	h := newHarness()
	h.notifications.err = context.DeadlineExceeded
	p := mqcontracts.TaskAssignedPayload{
		Meta:        meta(),
		TaskID:      uuid.NewString(),
		PatientID:   uuid.NewString(),
		CaregiverID: uuid.NewString(),
	}

	for i := 0; i < 2; i++ {
		if err := deliver(t, h, mqcontracts.RoutingTaskAssigned, p); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("attempt %d: want requeue error, got %v", i+1, err)
		}
	}
	if err := deliver(t, h, mqcontracts.RoutingTaskAssigned, p); err != nil {
		t.Fatalf("after max retries the event should be acked, got %v", err)
	}
	if len(h.dlq.payloads) != 1 {
		t.Fatalf("expected 1 DLQ message, got %d", len(h.dlq.payloads))
	}
}
