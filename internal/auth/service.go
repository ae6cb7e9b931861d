package auth

import (
	"context"
	"time"

	"LifeLink/internal/donor"
	"LifeLink/internal/hospital"
	"LifeLink/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// UserService owns registration and login. Registration creates the
// identity record and the role-specific profile in the same call.
type UserService struct {
	repo      *UserRepository
	donors    *donor.Repository
	hospitals *hospital.Repository
	log       *zap.Logger
}

func NewUserService(repo *UserRepository, donors *donor.Repository, hospitals *hospital.Repository, log *zap.Logger) *UserService {
	return &UserService{repo: repo, donors: donors, hospitals: hospitals, log: log}
}

func (s *UserService) RegisterUser(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("user with this email already exists")
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &User{
		ID:           primitive.NewObjectID(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hashed,
		Phone:        req.Phone,
		Role:         req.Role,
		Address:      req.Address,
		Location:     req.Location,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.Conflict("user with this email already exists")
		}
		return nil, err
	}

	switch req.Role {
	case RoleDonor:
		d := &donor.Donor{
			ID:                    primitive.NewObjectID(),
			UserID:                user.ID,
			BloodGroup:            req.Donor.BloodGroup,
			DateOfBirth:           req.Donor.DateOfBirth,
			Weight:                req.Donor.Weight,
			Status:                donor.StatusEligible,
			Badges:                []string{},
			Tier:                  "Bronze",
			AvailableForEmergency: true,
			NotificationsEnabled:  true,
			MedicalConditions:     []string{},
			Medications:           []string{},
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := s.donors.Create(ctx, d); err != nil {
			return nil, err
		}
	case RoleHospital:
		h := &hospital.Hospital{
			ID:               primitive.NewObjectID(),
			UserID:           user.ID,
			HospitalName:     req.Hospital.HospitalName,
			LicenseNumber:    req.Hospital.LicenseNumber,
			ContactPerson:    req.Hospital.ContactPerson,
			EmergencyContact: req.Hospital.EmergencyContact,
			BloodInventory:   hospital.EmptyInventory(),
			TotalCapacity:    50,
			IsVerified:       true,
			Specialties:      []string{},
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.hospitals.Create(ctx, h); err != nil {
			return nil, err
		}
	}

	token, err := GenerateJWT(user.ID.Hex(), user.Email, user.Role, TokenValidity)
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered",
		zap.String("user_id", user.ID.Hex()),
		zap.String("role", string(user.Role)))

	return &AuthResponse{User: userView(user), Token: token}, nil
}

func (s *UserService) AuthenticateUser(ctx context.Context, cred Credential) (*AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, cred.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive || !CheckPasswordHash(cred.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("invalid credentials")
	}

	token, err := GenerateJWT(user.ID.Hex(), user.Email, user.Role, TokenValidity)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{User: userView(user), Token: token}, nil
}

func (s *UserService) FindUser(ctx context.Context, id primitive.ObjectID) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}
	return user, nil
}

func userView(u *User) UserView {
	return UserView{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		Phone:    u.Phone,
		Address:  u.Address,
		Location: u.Location,
	}
}
