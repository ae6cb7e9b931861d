package hospital

import (
	"context"
	"time"

	"LifeLink/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Service struct {
	repo *Repository
	log  *zap.Logger
}

func NewService(repo *Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) GetProfile(ctx context.Context, userID primitive.ObjectID) (*Hospital, error) {
	h, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, apperr.NotFound("hospital profile not found")
	}
	return h, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID primitive.ObjectID, req UpdateProfileRequest) (*Hospital, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	h, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.HospitalName != nil {
		h.HospitalName = *req.HospitalName
	}
	if req.ContactPerson != nil {
		h.ContactPerson = *req.ContactPerson
	}
	if req.EmergencyContact != nil {
		h.EmergencyContact = *req.EmergencyContact
	}
	if req.TotalCapacity != nil {
		h.TotalCapacity = *req.TotalCapacity
	}
	if req.Specialties != nil {
		h.Specialties = *req.Specialties
	}
	if req.Website != nil {
		h.Website = *req.Website
	}
	h.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, h); err != nil {
		return nil, err
	}

	s.log.Info("hospital profile updated", zap.String("user_id", userID.Hex()))
	return h, nil
}

// UpdateInventory replaces the hospital's on-hand unit counts. Groups
// missing from the request are reset to zero, matching a full dashboard
// submission.
func (s *Service) UpdateInventory(ctx context.Context, userID primitive.ObjectID, req UpdateInventoryRequest) (*Hospital, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	h, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	inv := EmptyInventory()
	for group, units := range req.Inventory {
		inv[group] = units
	}
	h.BloodInventory = inv
	h.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, h); err != nil {
		return nil, err
	}

	s.log.Info("hospital inventory updated", zap.String("user_id", userID.Hex()))
	return h, nil
}
