// Package proximity finds linked patients close to a caregiver.
package proximity

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/model"
	"carecircle/internal/repository"
	"carecircle/pkg/geo"
	"carecircle/pkg/logger"
	"carecircle/pkg/metrics"
)

const (
	SourceProfile  = "profile"
	SourceFallback = "fallback"
)

type profileStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error
}

type patientStore interface {
	ListPatients(ctx context.Context, caretakerID uuid.UUID) ([]model.PatientLink, error)
}

type Service struct {
	profiles        profileStore
	patients        patientStore
	thresholdMeters float64
	fallback        geo.Point
	logger          *zap.Logger
}

func NewService(profiles profileStore, patients patientStore, thresholdMeters float64, fallback geo.Point, logger *zap.Logger) *Service {
	if thresholdMeters <= 0 {
		thresholdMeters = geo.ProximityThresholdMeters
	}
	return &Service{
		profiles:        profiles,
		patients:        patients,
		thresholdMeters: thresholdMeters,
		fallback:        fallback,
		logger:          logger,
	}
}

// Nearby 对所有有坐标的关联患者逐一计算距离
func (s *Service) Nearby(ctx context.Context, caretakerID uuid.UUID) (*model.NearbyResult, error) {
	me, err := s.profiles.FindByID(ctx, caretakerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("profile not found")
		}
		return nil, apperr.Internal("failed to load profile", err)
	}

	origin, source := s.fallback, SourceFallback
	if me.HasLocation() {
		origin, source = geo.Point{Latitude: *me.Latitude, Longitude: *me.Longitude}, SourceProfile
	}
	metrics.IncrementProximityCheck(source)

	links, err := s.patients.ListPatients(ctx, caretakerID)
	if err != nil {
		return nil, apperr.Internal("failed to load patients", err)
	}

	candidates := make([]geo.Candidate[model.ProfileSummary], 0, len(links))
	for _, l := range links {
		if l.Patient.Latitude == nil || l.Patient.Longitude == nil {
			continue
		}
		candidates = append(candidates, geo.Candidate[model.ProfileSummary]{
			Item:  l.Patient,
			Point: geo.Point{Latitude: *l.Patient.Latitude, Longitude: *l.Patient.Longitude},
		})
	}

	matches := geo.Nearby(origin, candidates, s.thresholdMeters)
	nearby := make([]model.NearbyPatient, 0, len(matches))
	for _, m := range matches {
		nearby = append(nearby, model.NearbyPatient{Patient: m.Item, DistanceKm: m.DistanceKm})
	}

	logger.WithTrace(ctx, s.logger).Debug("Proximity computed",
		zap.String("caretaker_id", caretakerID.String()),
		zap.String("location_source", source),
		zap.Int("candidates", len(candidates)),
		zap.Int("nearby", len(nearby)),
	)

	return &model.NearbyResult{
		Latitude:        origin.Latitude,
		Longitude:       origin.Longitude,
		LocationSource:  source,
		ThresholdMeters: s.thresholdMeters,
		Patients:        nearby,
	}, nil
}

// UpdateLocation 写回设备坐标
func (s *Service) UpdateLocation(ctx context.Context, userID uuid.UUID, p geo.Point) error {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) ||
		p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return apperr.Validation("coordinates out of range")
	}
	if err := s.profiles.UpdateLocation(ctx, userID, p.Latitude, p.Longitude); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("profile not found")
		}
		return apperr.Internal("failed to update location", err)
	}
	return nil
}
