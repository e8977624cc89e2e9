package careplan

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/model"
	"carecircle/internal/repository"
)

type fakeTasks struct {
	rows []*model.Task
}

func (f *fakeTasks) CreateBulk(ctx context.Context, tasks []*model.Task) error {
	for _, t := range tasks {
		t.ID = uuid.New()
		f.rows = append(f.rows, t)
	}
	return nil
}

func (f *fakeTasks) ListByCaregiver(ctx context.Context, caregiverID uuid.UUID) ([]model.TaskView, error) {
	var out []model.TaskView
	for _, t := range f.rows {
		if t.Caregiver == caregiverID {
			out = append(out, model.TaskView{Task: *t})
		}
	}
	return out, nil
}

func (f *fakeTasks) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]model.Task, error) {
	var out []model.Task
	for _, t := range f.rows {
		if t.User == patientID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTasks) SetCompleted(ctx context.Context, taskID, actorID uuid.UUID, completed bool) (*model.Task, error) {
	for _, t := range f.rows {
		if t.ID == taskID && (t.User == actorID || t.Caregiver == actorID) {
			t.Completed = completed
			return t, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeReminders struct {
	rows []*model.MedicalReminder
}

func (f *fakeReminders) Create(ctx context.Context, m *model.MedicalReminder) error {
	m.ID = uuid.New()
	f.rows = append(f.rows, m)
	return nil
}

func (f *fakeReminders) ListByCaregiver(ctx context.Context, caregiverID uuid.UUID) ([]model.ReminderView, error) {
	var out []model.ReminderView
	for _, m := range f.rows {
		if m.Caregiver == caregiverID {
			out = append(out, model.ReminderView{MedicalReminder: *m})
		}
	}
	return out, nil
}

func (f *fakeReminders) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]model.MedicalReminder, error) {
	var out []model.MedicalReminder
	for _, m := range f.rows {
		if m.User == patientID {
			out = append(out, *m)
		}
	}
	return out, nil
}

type fakeLinks map[[2]uuid.UUID]bool

func (f fakeLinks) IsLinked(ctx context.Context, caretakerID, patientID uuid.UUID) (bool, error) {
	return f[[2]uuid.UUID{caretakerID, patientID}], nil
}

type fixture struct {
	svc       *Service
	tasks     *fakeTasks
	caregiver uuid.UUID
	patients  []uuid.UUID
	stranger  uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		tasks:     &fakeTasks{},
		caregiver: uuid.New(),
		patients:  []uuid.UUID{uuid.New(), uuid.New()},
		stranger:  uuid.New(),
	}
	links := fakeLinks{}
	for _, p := range f.patients {
		links[[2]uuid.UUID{f.caregiver, p}] = true
	}
	f.svc = NewService(f.tasks, &fakeReminders{}, links, zap.NewNop())
	return f
}

func TestAssignTaskCreatesOnePerPatient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tasks, err := f.svc.AssignTask(ctx, f.caregiver, AssignInput{
		Description: "Morning walk",
		PatientIDs:  []uuid.UUID{f.patients[0], f.patients[1], f.patients[0]},
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("created %d tasks, want 2", len(tasks))
	}

	mine, _ := f.svc.PatientTasks(ctx, f.patients[1])
	if len(mine) != 1 || mine[0].Description != "Morning walk" {
		t.Fatalf("patient tasks = %+v", mine)
	}

	done, err := f.svc.SetCompleted(ctx, mine[0].ID, f.patients[1], true)
	if err != nil || !done.Completed {
		t.Fatalf("SetCompleted = (%+v, %v)", done, err)
	}
}

func TestCareplanErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	start := time.Now()

	tests := []struct {
		name string
		run  func() error
		want int
	}{
		{"no patients", func() error {
			_, err := f.svc.AssignTask(ctx, f.caregiver, AssignInput{Description: "x", StartTime: start, EndTime: start})
			return err
		}, http.StatusBadRequest},
		{"end before start", func() error {
			_, err := f.svc.AssignTask(ctx, f.caregiver, AssignInput{Description: "x", PatientIDs: f.patients, StartTime: start, EndTime: start.Add(-time.Minute)})
			return err
		}, http.StatusBadRequest},
		{"unlinked patient", func() error {
			_, err := f.svc.AssignTask(ctx, f.caregiver, AssignInput{Description: "x", PatientIDs: []uuid.UUID{f.stranger}, StartTime: start, EndTime: start})
			return err
		}, http.StatusForbidden},
		{"reminder without patient", func() error {
			_, err := f.svc.CreateReminder(ctx, f.caregiver, uuid.Nil, "pill", start)
			return err
		}, http.StatusBadRequest},
		{"reminder for unlinked patient", func() error {
			_, err := f.svc.CreateReminder(ctx, f.caregiver, f.stranger, "pill", start)
			return err
		}, http.StatusForbidden},
		{"complete someone else's task", func() error {
			_, err := f.svc.SetCompleted(ctx, uuid.New(), f.stranger, true)
			return err
		}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.From(tt.run()).Kind.Status(); got != tt.want {
				t.Fatalf("status = %d, want %d", got, tt.want)
			}
		})
	}
	if len(f.tasks.rows) != 0 {
		t.Fatalf("failed assignments must not create tasks, got %d", len(f.tasks.rows))
	}
}

func TestReminderLists(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.CreateReminder(ctx, f.caregiver, f.patients[0], "Take insulin", time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	cg, _ := f.svc.CaregiverReminders(ctx, f.caregiver)
	own, _ := f.svc.PatientReminders(ctx, f.patients[0])
	other, _ := f.svc.PatientReminders(ctx, f.patients[1])
	if len(cg) != 1 || len(own) != 1 || len(other) != 0 {
		t.Fatalf("caregiver=%d own=%d other=%d", len(cg), len(own), len(other))
	}
}
