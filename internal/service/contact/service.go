// Package contact manages a patient's emergency contacts.
package contact

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/model"
	"carecircle/internal/repository"
)

type store interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Contact, error)
	Create(ctx context.Context, c *model.Contact) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	ListForCaregiver(ctx context.Context, caretakerID uuid.UUID) ([]model.PatientContacts, error)
}

type Service struct {
	store  store
	logger *zap.Logger
}

func NewService(store store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// List 最新添加的在前
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]model.Contact, error) {
	list, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to load contacts", err)
	}
	if list == nil {
		list = []model.Contact{}
	}
	return list, nil
}

func (s *Service) Add(ctx context.Context, userID uuid.UUID, name, number string) (*model.Contact, error) {
	name, number = strings.TrimSpace(name), strings.TrimSpace(number)
	if name == "" || number == "" {
		return nil, apperr.Validation("contact_name and number are required")
	}

	c := &model.Contact{User: userID, ContactName: name, Number: number}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, apperr.Internal("failed to add contact", err)
	}
	return c, nil
}

// Remove 只能删除自己的联系人
func (s *Service) Remove(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("contact not found")
		}
		return apperr.Internal("failed to delete contact", err)
	}
	return nil
}

// ForCaregiver 照护者查看所有关联患者的联系人，按患者分组
func (s *Service) ForCaregiver(ctx context.Context, caretakerID uuid.UUID) ([]model.PatientContacts, error) {
	groups, err := s.store.ListForCaregiver(ctx, caretakerID)
	if err != nil {
		return nil, apperr.Internal("failed to load patient contacts", err)
	}
	if groups == nil {
		groups = []model.PatientContacts{}
	}
	return groups, nil
}
