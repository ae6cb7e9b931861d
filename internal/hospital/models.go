package hospital

import (
	"time"

	"LifeLink/internal/donor"
	"LifeLink/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Hospital is the role-specific profile linked one-to-one to a user account
// with the hospital role.
type Hospital struct {
	ID                primitive.ObjectID        `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID        `bson:"user_id" json:"userId"`
	HospitalName      string                    `bson:"hospital_name" json:"hospitalName"`
	LicenseNumber     string                    `bson:"license_number" json:"licenseNumber"`
	ContactPerson     string                    `bson:"contact_person" json:"contactPerson"`
	EmergencyContact  string                    `bson:"emergency_contact" json:"emergencyContact"`
	BloodInventory    map[donor.BloodGroup]int  `bson:"blood_inventory" json:"bloodInventory"`
	TotalCapacity     int                       `bson:"total_capacity" json:"totalCapacity"`
	IsVerified        bool                      `bson:"is_verified" json:"isVerified"`
	Specialties       []string                  `bson:"specialties" json:"specialties"`
	Website           string                    `bson:"website,omitempty" json:"website,omitempty"`
	TotalAlertsRaised int                       `bson:"total_alerts_raised" json:"totalAlertsRaised"`
	SuccessfulMatches int                       `bson:"successful_matches" json:"successfulMatches"`
	CreatedAt         time.Time                 `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time                 `bson:"updated_at" json:"updatedAt"`
}

// EmptyInventory returns an inventory holding zero units of every group.
func EmptyInventory() map[donor.BloodGroup]int {
	inv := make(map[donor.BloodGroup]int, len(donor.AllBloodGroups))
	for _, g := range donor.AllBloodGroups {
		inv[g] = 0
	}
	return inv
}

type UpdateProfileRequest struct {
	HospitalName     *string   `json:"hospitalName,omitempty"`
	ContactPerson    *string   `json:"contactPerson,omitempty"`
	EmergencyContact *string   `json:"emergencyContact,omitempty"`
	TotalCapacity    *int      `json:"totalCapacity,omitempty"`
	Specialties      *[]string `json:"specialties,omitempty"`
	Website          *string   `json:"website,omitempty"`
}

func (r UpdateProfileRequest) Validate() error {
	if r.TotalCapacity != nil && *r.TotalCapacity < 0 {
		return apperr.Invalid("total capacity must not be negative")
	}
	return nil
}

// UpdateInventoryRequest replaces the on-hand unit count per blood group.
type UpdateInventoryRequest struct {
	Inventory map[donor.BloodGroup]int `json:"inventory"`
}

func (r UpdateInventoryRequest) Validate() error {
	for group, units := range r.Inventory {
		if !group.Valid() {
			return apperr.Invalid("invalid blood group in inventory")
		}
		if units < 0 {
			return apperr.Invalid("inventory units must not be negative")
		}
	}
	return nil
}
