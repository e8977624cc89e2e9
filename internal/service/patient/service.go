// Package patient links caregivers with the patients they look after.
package patient

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/model"
	"carecircle/internal/repository"
	"carecircle/pkg/logger"
)

const DefaultSearchLimit = 10

type store interface {
	ListPatients(ctx context.Context, caretakerID uuid.UUID) ([]model.PatientLink, error)
	SearchPatients(ctx context.Context, caretakerID uuid.UUID, query string, limit int) ([]model.ProfileSummary, error)
	Link(ctx context.Context, caretakerID, patientID uuid.UUID) error
	ListCaregivers(ctx context.Context, patientID uuid.UUID) ([]model.CaregiverLink, error)
}

type Service struct {
	store  store
	logger *zap.Logger
}

func NewService(store store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

func (s *Service) Patients(ctx context.Context, caretakerID uuid.UUID) ([]model.PatientLink, error) {
	list, err := s.store.ListPatients(ctx, caretakerID)
	if err != nil {
		return nil, apperr.Internal("failed to load patients", err)
	}
	if list == nil {
		list = []model.PatientLink{}
	}
	return list, nil
}

// Search 按姓名模糊搜索尚未关联的患者
func (s *Service) Search(ctx context.Context, caretakerID uuid.UUID, query string, limit int) ([]model.ProfileSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.ProfileSummary{}, nil
	}
	if limit <= 0 || limit > DefaultSearchLimit {
		limit = DefaultSearchLimit
	}

	list, err := s.store.SearchPatients(ctx, caretakerID, query, limit)
	if err != nil {
		return nil, apperr.Internal("failed to search patients", err)
	}
	if list == nil {
		list = []model.ProfileSummary{}
	}
	return list, nil
}

func (s *Service) Link(ctx context.Context, caretakerID, patientID uuid.UUID) error {
	if caretakerID == patientID {
		return apperr.Validation("cannot link yourself")
	}

	err := s.store.Link(ctx, caretakerID, patientID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("patient not found")
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict("patient already linked")
	case err != nil:
		return apperr.Internal("failed to link patient", err)
	}

	logger.WithTrace(ctx, s.logger).Info("Patient linked",
		zap.String("caretaker_id", caretakerID.String()),
		zap.String("patient_id", patientID.String()),
	)
	return nil
}

func (s *Service) Caregivers(ctx context.Context, patientID uuid.UUID) ([]model.CaregiverLink, error) {
	list, err := s.store.ListCaregivers(ctx, patientID)
	if err != nil {
		return nil, apperr.Internal("failed to load caregivers", err)
	}
	if list == nil {
		list = []model.CaregiverLink{}
	}
	return list, nil
}
