package donor

import (
	"time"

	"LifeLink/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	errInvalidBloodGroup = apperr.Invalid("invalid blood group")
	errInvalidStatus     = apperr.Invalid("invalid donor status")
	errInvalidWeight     = apperr.Invalid("weight out of range")
)

// BloodGroup is one of the eight ABO/Rh types. Matching is exact: no
// cross-compatibility substitution is ever applied.
type BloodGroup string

const (
	APositive  BloodGroup = "A+"
	ANegative  BloodGroup = "A-"
	BPositive  BloodGroup = "B+"
	BNegative  BloodGroup = "B-"
	ABPositive BloodGroup = "AB+"
	ABNegative BloodGroup = "AB-"
	OPositive  BloodGroup = "O+"
	ONegative  BloodGroup = "O-"
)

// AllBloodGroups lists every valid group, used for inventory maps and
// request validation.
var AllBloodGroups = []BloodGroup{
	APositive, ANegative,
	BPositive, BNegative,
	ABPositive, ABNegative,
	OPositive, ONegative,
}

func (b BloodGroup) Valid() bool {
	for _, g := range AllBloodGroups {
		if b == g {
			return true
		}
	}
	return false
}

// Status is the donor's medical eligibility, maintained by the donor's
// profile updates, never flipped automatically by the alert flow.
type Status string

const (
	StatusEligible              Status = "eligible"
	StatusIneligible            Status = "ineligible"
	StatusTemporarilyIneligible Status = "temporarily_ineligible"
)

func (s Status) Valid() bool {
	switch s {
	case StatusEligible, StatusIneligible, StatusTemporarilyIneligible:
		return true
	}
	return false
}

// Donor is the role-specific profile linked one-to-one to a user account
// with the donor role.
type Donor struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID                primitive.ObjectID `bson:"user_id" json:"userId"`
	BloodGroup            BloodGroup         `bson:"blood_group" json:"bloodGroup"`
	DateOfBirth           time.Time          `bson:"date_of_birth" json:"dateOfBirth"`
	Weight                float64            `bson:"weight" json:"weight"` // kg
	Status                Status             `bson:"status" json:"status"`
	LastDonationDate      *time.Time         `bson:"last_donation_date,omitempty" json:"lastDonationDate,omitempty"`
	TotalDonations        int                `bson:"total_donations" json:"totalDonations"`
	RewardPoints          int                `bson:"reward_points" json:"rewardPoints"`
	Badges                []string           `bson:"badges" json:"badges"`
	Tier                  string             `bson:"tier" json:"tier"`
	AvailableForEmergency bool               `bson:"available_for_emergency" json:"availableForEmergency"`
	NotificationsEnabled  bool               `bson:"notifications_enabled" json:"notificationsEnabled"`
	FCMToken              string             `bson:"fcm_token,omitempty" json:"-"`
	MedicalConditions     []string           `bson:"medical_conditions" json:"medicalConditions"`
	Medications           []string           `bson:"medications" json:"medications"`
	CreatedAt             time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt             time.Time          `bson:"updated_at" json:"updatedAt"`
}

// UpdateProfileRequest carries the donor-mutable profile fields. Pointers
// distinguish "not sent" from zero values.
type UpdateProfileRequest struct {
	Weight                *float64    `json:"weight,omitempty"`
	Status                *Status     `json:"status,omitempty"`
	LastDonationDate      *time.Time  `json:"lastDonationDate,omitempty"`
	AvailableForEmergency *bool       `json:"availableForEmergency,omitempty"`
	NotificationsEnabled  *bool       `json:"notificationsEnabled,omitempty"`
	MedicalConditions     *[]string   `json:"medicalConditions,omitempty"`
	Medications           *[]string   `json:"medications,omitempty"`
	BloodGroup            *BloodGroup `json:"bloodGroup,omitempty"`
}

func (r UpdateProfileRequest) Validate() error {
	if r.BloodGroup != nil && !r.BloodGroup.Valid() {
		return errInvalidBloodGroup
	}
	if r.Status != nil && !r.Status.Valid() {
		return errInvalidStatus
	}
	if r.Weight != nil && (*r.Weight <= 0 || *r.Weight > 500) {
		return errInvalidWeight
	}
	return nil
}

type UpdateFCMTokenRequest struct {
	FCMToken string `json:"fcmToken"`
}
