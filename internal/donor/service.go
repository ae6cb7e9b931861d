package donor

import (
	"context"
	"time"

	"LifeLink/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Service struct {
	repo *Repository
	log  *zap.Logger
}

func NewService(repo *Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) GetProfile(ctx context.Context, userID primitive.ObjectID) (*Donor, error) {
	d, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.NotFound("donor profile not found")
	}
	return d, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID primitive.ObjectID, req UpdateProfileRequest) (*Donor, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	d, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.BloodGroup != nil {
		d.BloodGroup = *req.BloodGroup
	}
	if req.Weight != nil {
		d.Weight = *req.Weight
	}
	if req.Status != nil {
		d.Status = *req.Status
	}
	if req.LastDonationDate != nil {
		d.LastDonationDate = req.LastDonationDate
	}
	if req.AvailableForEmergency != nil {
		d.AvailableForEmergency = *req.AvailableForEmergency
	}
	if req.NotificationsEnabled != nil {
		d.NotificationsEnabled = *req.NotificationsEnabled
	}
	if req.MedicalConditions != nil {
		d.MedicalConditions = *req.MedicalConditions
	}
	if req.Medications != nil {
		d.Medications = *req.Medications
	}
	d.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}

	s.log.Info("donor profile updated", zap.String("user_id", userID.Hex()))
	return d, nil
}

func (s *Service) UpdateFCMToken(ctx context.Context, userID primitive.ObjectID, token string) error {
	err := s.repo.UpdateFCMToken(ctx, userID, token)
	if err == mongo.ErrNoDocuments {
		return apperr.NotFound("donor profile not found")
	}
	return err
}
