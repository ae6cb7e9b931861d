package auth

import (
	"strings"
	"time"

	"LifeLink/internal/donor"
	"LifeLink/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleDonor    Role = "donor"
	RoleHospital Role = "hospital"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDonor, RoleHospital, RoleAdmin:
		return true
	}
	return false
}

// GeoPoint is a GeoJSON point, longitude first, as the 2dsphere index
// expects.
type GeoPoint struct {
	Type        string     `bson:"type" json:"type"`
	Coordinates [2]float64 `bson:"coordinates" json:"coordinates"`
}

func NewGeoPoint(longitude, latitude float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: [2]float64{longitude, latitude}}
}

func (p GeoPoint) Longitude() float64 { return p.Coordinates[0] }
func (p GeoPoint) Latitude() float64  { return p.Coordinates[1] }

// User is the identity record shared by every role. Role-specific data
// lives in the donor and hospital profile collections.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Phone        string             `bson:"phone" json:"phone"`
	Role         Role               `bson:"role" json:"role"`
	Address      string             `bson:"address" json:"address"`
	Location     GeoPoint           `bson:"location" json:"location"`
	IsActive     bool               `bson:"is_active" json:"isActive"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

// DonorRegistration is the donor-only section of a registration request.
type DonorRegistration struct {
	BloodGroup  donor.BloodGroup `json:"bloodGroup"`
	DateOfBirth time.Time        `json:"dateOfBirth"`
	Weight      float64          `json:"weight"`
}

// HospitalRegistration is the hospital-only section of a registration
// request.
type HospitalRegistration struct {
	HospitalName     string `json:"hospitalName"`
	LicenseNumber    string `json:"licenseNumber"`
	ContactPerson    string `json:"contactPerson"`
	EmergencyContact string `json:"emergencyContact"`
}

// RegisterRequest carries the identity fields plus exactly one role-tagged
// section matching the declared role.
type RegisterRequest struct {
	Name     string                `json:"name"`
	Email    string                `json:"email"`
	Password string                `json:"password"`
	Phone    string                `json:"phone"`
	Role     Role                  `json:"role"`
	Address  string                `json:"address"`
	Location GeoPoint              `json:"location"`
	Donor    *DonorRegistration    `json:"donor,omitempty"`
	Hospital *HospitalRegistration `json:"hospital,omitempty"`
}

func (r RegisterRequest) Validate() error {
	if r.Name == "" || r.Email == "" || r.Password == "" || r.Phone == "" {
		return apperr.Invalid("name, email, password and phone are required")
	}
	if !strings.Contains(r.Email, "@") {
		return apperr.Invalid("invalid email address")
	}
	if len(r.Password) < 8 {
		return apperr.Invalid("password must be at least 8 characters")
	}
	if !r.Role.Valid() {
		return apperr.Invalid("invalid role")
	}
	if r.Location.Type != "Point" {
		return apperr.Invalid("location must be a GeoJSON point")
	}
	if lon, lat := r.Location.Longitude(), r.Location.Latitude(); lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return apperr.Invalid("location coordinates out of range")
	}

	switch r.Role {
	case RoleDonor:
		if r.Donor == nil {
			return apperr.Invalid("donor section is required for donor registration")
		}
		if !r.Donor.BloodGroup.Valid() {
			return apperr.Invalid("invalid blood group")
		}
		if r.Donor.DateOfBirth.IsZero() {
			return apperr.Invalid("date of birth is required")
		}
		if r.Donor.Weight <= 0 {
			return apperr.Invalid("weight must be positive")
		}
	case RoleHospital:
		if r.Hospital == nil {
			return apperr.Invalid("hospital section is required for hospital registration")
		}
		if r.Hospital.HospitalName == "" || r.Hospital.LicenseNumber == "" {
			return apperr.Invalid("hospital name and license number are required")
		}
	}
	return nil
}

type Credential struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserView is the identity payload returned to clients after
// registration and login.
type UserView struct {
	ID       primitive.ObjectID `json:"id"`
	Name     string             `json:"name"`
	Email    string             `json:"email"`
	Role     Role               `json:"role"`
	Phone    string             `json:"phone"`
	Address  string             `json:"address"`
	Location GeoPoint           `json:"location"`
}

type AuthResponse struct {
	User  UserView `json:"user"`
	Token string   `json:"token"`
}
