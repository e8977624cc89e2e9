// Package careplan manages caregiver-assigned tasks and medical reminders.
package careplan

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/model"
	"carecircle/internal/repository"
	"carecircle/pkg/logger"
)

type taskStore interface {
	CreateBulk(ctx context.Context, tasks []*model.Task) error
	ListByCaregiver(ctx context.Context, caregiverID uuid.UUID) ([]model.TaskView, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]model.Task, error)
	SetCompleted(ctx context.Context, taskID, actorID uuid.UUID, completed bool) (*model.Task, error)
}

type reminderStore interface {
	Create(ctx context.Context, m *model.MedicalReminder) error
	ListByCaregiver(ctx context.Context, caregiverID uuid.UUID) ([]model.ReminderView, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]model.MedicalReminder, error)
}

type linkChecker interface {
	IsLinked(ctx context.Context, caretakerID, patientID uuid.UUID) (bool, error)
}

type Service struct {
	tasks     taskStore
	reminders reminderStore
	links     linkChecker
	logger    *zap.Logger
}

func NewService(tasks taskStore, reminders reminderStore, links linkChecker, logger *zap.Logger) *Service {
	return &Service{tasks: tasks, reminders: reminders, links: links, logger: logger}
}

type AssignInput struct {
	Description string
	PatientIDs  []uuid.UUID
	StartTime   time.Time
	EndTime     time.Time
}

// requireLinked 所有患者都必须已与照护者关联
func (s *Service) requireLinked(ctx context.Context, caregiverID uuid.UUID, patientIDs ...uuid.UUID) error {
	for _, id := range patientIDs {
		ok, err := s.links.IsLinked(ctx, caregiverID, id)
		if err != nil {
			return apperr.Internal("failed to check patient link", err)
		}
		if !ok {
			return apperr.Forbidden("patient " + id.String() + " is not linked to this caregiver")
		}
	}
	return nil
}

// AssignTask 一次为多个患者各创建一条任务，至少一个患者
func (s *Service) AssignTask(ctx context.Context, caregiverID uuid.UUID, in AssignInput) ([]*model.Task, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, apperr.Validation("description is required")
	}
	if len(in.PatientIDs) == 0 {
		return nil, apperr.Validation("select at least one patient")
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return nil, apperr.Validation("start_time and end_time are required")
	}
	if in.EndTime.Before(in.StartTime) {
		return nil, apperr.Validation("end_time must not be before start_time")
	}

	seen := make(map[uuid.UUID]struct{}, len(in.PatientIDs))
	patients := make([]uuid.UUID, 0, len(in.PatientIDs))
	for _, id := range in.PatientIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		patients = append(patients, id)
	}
	if err := s.requireLinked(ctx, caregiverID, patients...); err != nil {
		return nil, err
	}

	tasks := make([]*model.Task, 0, len(patients))
	for _, id := range patients {
		tasks = append(tasks, &model.Task{
			Description: description,
			User:        id,
			Caregiver:   caregiverID,
			StartTime:   in.StartTime,
			EndTime:     in.EndTime,
		})
	}
	if err := s.tasks.CreateBulk(ctx, tasks); err != nil {
		return nil, apperr.Internal("failed to assign task", err)
	}

	logger.WithTrace(ctx, s.logger).Info("Task assigned",
		zap.String("caregiver_id", caregiverID.String()),
		zap.Int("patients", len(tasks)),
	)
	return tasks, nil
}

func (s *Service) CaregiverTasks(ctx context.Context, caregiverID uuid.UUID) ([]model.TaskView, error) {
	list, err := s.tasks.ListByCaregiver(ctx, caregiverID)
	if err != nil {
		return nil, apperr.Internal("failed to load tasks", err)
	}
	if list == nil {
		list = []model.TaskView{}
	}
	return list, nil
}

func (s *Service) PatientTasks(ctx context.Context, patientID uuid.UUID) ([]model.Task, error) {
	list, err := s.tasks.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperr.Internal("failed to load tasks", err)
	}
	if list == nil {
		list = []model.Task{}
	}
	return list, nil
}

// SetCompleted 患者本人或创建任务的照护者可修改
func (s *Service) SetCompleted(ctx context.Context, taskID, actorID uuid.UUID, completed bool) (*model.Task, error) {
	t, err := s.tasks.SetCompleted(ctx, taskID, actorID, completed)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("task not found")
		}
		return nil, apperr.Internal("failed to update task", err)
	}
	return t, nil
}

// CreateReminder 提醒只针对一个患者
func (s *Service) CreateReminder(ctx context.Context, caregiverID, patientID uuid.UUID, description string, at time.Time) (*model.MedicalReminder, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperr.Validation("description is required")
	}
	if patientID == uuid.Nil {
		return nil, apperr.Validation("select a patient")
	}
	if at.IsZero() {
		return nil, apperr.Validation("time is required")
	}
	if err := s.requireLinked(ctx, caregiverID, patientID); err != nil {
		return nil, err
	}

	m := &model.MedicalReminder{
		Description: description,
		Time:        at,
		User:        patientID,
		Caregiver:   caregiverID,
	}
	if err := s.reminders.Create(ctx, m); err != nil {
		return nil, apperr.Internal("failed to create reminder", err)
	}
	return m, nil
}

func (s *Service) CaregiverReminders(ctx context.Context, caregiverID uuid.UUID) ([]model.ReminderView, error) {
	list, err := s.reminders.ListByCaregiver(ctx, caregiverID)
	if err != nil {
		return nil, apperr.Internal("failed to load reminders", err)
	}
	if list == nil {
		list = []model.ReminderView{}
	}
	return list, nil
}

func (s *Service) PatientReminders(ctx context.Context, patientID uuid.UUID) ([]model.MedicalReminder, error) {
	list, err := s.reminders.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperr.Internal("failed to load reminders", err)
	}
	if list == nil {
		list = []model.MedicalReminder{}
	}
	return list, nil
}
