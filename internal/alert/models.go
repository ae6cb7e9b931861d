package alert

import (
	"time"

	"LifeLink/internal/donor"
	"LifeLink/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusFulfilled Status = "fulfilled"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusFulfilled, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// rank orders priorities for the active-alerts listing, critical first.
func (p Priority) rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

type ResponseStatus string

const (
	ResponsePending   ResponseStatus = "pending"
	ResponseAccepted  ResponseStatus = "accepted"
	ResponseDeclined  ResponseStatus = "declined"
	ResponseCompleted ResponseStatus = "completed"
)

func (s ResponseStatus) Valid() bool {
	switch s {
	case ResponsePending, ResponseAccepted, ResponseDeclined, ResponseCompleted:
		return true
	}
	return false
}

// DonorResponse is embedded in the alert document. Invariant: at most one
// entry per donor; a repeat response overwrites the existing entry.
type DonorResponse struct {
	DonorID          primitive.ObjectID `bson:"donor_id" json:"donorId"`
	Status           ResponseStatus     `bson:"status" json:"status"`
	ResponseTime     time.Time          `bson:"response_time" json:"responseTime"`
	EstimatedArrival *time.Time         `bson:"estimated_arrival,omitempty" json:"estimatedArrival,omitempty"`
	Notes            string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// ExpiryWindow is the absolute lifetime of an alert, independent of the
// hospital-supplied requiredBy deadline.
const ExpiryWindow = 24 * time.Hour

// DefaultSearchRadiusKm applies when the hospital does not request a radius.
const DefaultSearchRadiusKm = 5

// Alert is a hospital's open request for blood donations.
type Alert struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	HospitalID       primitive.ObjectID   `bson:"hospital_id" json:"hospitalId"`
	BloodGroup       donor.BloodGroup     `bson:"blood_group" json:"bloodGroup"`
	UnitsNeeded      int                  `bson:"units_needed" json:"unitsNeeded"`
	Priority         Priority             `bson:"priority" json:"priority"`
	Status           Status               `bson:"status" json:"status"`
	PatientCondition string               `bson:"patient_condition" json:"patientCondition"`
	AdditionalNotes  string               `bson:"additional_notes,omitempty" json:"additionalNotes,omitempty"`
	RequiredBy       time.Time            `bson:"required_by" json:"requiredBy"`
	SearchRadius     float64              `bson:"search_radius" json:"searchRadius"` // km
	Responses        []DonorResponse      `bson:"responses" json:"responses"`
	NotifiedDonors   []primitive.ObjectID `bson:"notified_donors" json:"notifiedDonors"`
	UnitsCollected   int                  `bson:"units_collected" json:"unitsCollected"`
	ExpiresAt        time.Time            `bson:"expires_at" json:"expiresAt"`
	IsEmergency      bool                 `bson:"is_emergency" json:"isEmergency"`
	CreatedAt        time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time            `bson:"updated_at" json:"updatedAt"`
}

type CreateAlertRequest struct {
	BloodGroup       donor.BloodGroup `json:"bloodGroup"`
	UnitsNeeded      int              `json:"unitsNeeded"`
	Priority         Priority         `json:"priority"`
	PatientCondition string           `json:"patientCondition"`
	AdditionalNotes  string           `json:"additionalNotes,omitempty"`
	RequiredBy       time.Time        `json:"requiredBy"`
	SearchRadius     float64          `json:"searchRadius,omitempty"`
	IsEmergency      bool             `json:"isEmergency,omitempty"`
}

func (r CreateAlertRequest) Validate() error {
	if !r.BloodGroup.Valid() {
		return apperr.Invalid("invalid blood group")
	}
	if r.UnitsNeeded < 1 || r.UnitsNeeded > 50 {
		return apperr.Invalid("units needed must be between 1 and 50")
	}
	if !r.Priority.Valid() {
		return apperr.Invalid("invalid priority")
	}
	if r.PatientCondition == "" {
		return apperr.Invalid("patient condition is required")
	}
	if r.RequiredBy.IsZero() {
		return apperr.Invalid("required-by deadline is required")
	}
	if r.SearchRadius != 0 && (r.SearchRadius < 1 || r.SearchRadius > 50) {
		return apperr.Invalid("search radius must be between 1 and 50 km")
	}
	return nil
}

type RespondRequest struct {
	Status           ResponseStatus `json:"status"`
	EstimatedArrival *time.Time     `json:"estimatedArrival,omitempty"`
	Notes            string         `json:"notes,omitempty"`
}

func (r RespondRequest) Validate() error {
	if !r.Status.Valid() {
		return apperr.Invalid("invalid response status")
	}
	return nil
}

type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

func (r UpdateStatusRequest) Validate() error {
	if !r.Status.Valid() {
		return apperr.Invalid("invalid alert status")
	}
	return nil
}

// HospitalSummary is the hospital display data joined onto alert views.
type HospitalSummary struct {
	ID           primitive.ObjectID `json:"id"`
	HospitalName string             `json:"hospitalName"`
	Address      string             `json:"address,omitempty"`
	Phone        string             `json:"phone,omitempty"`
}

// DonorSummary is the donor display data joined onto alert views.
type DonorSummary struct {
	ID         primitive.ObjectID `json:"id"`
	Name       string             `json:"name"`
	BloodGroup donor.BloodGroup   `json:"bloodGroup"`
}

// ResponseView is a DonorResponse joined with donor display data.
type ResponseView struct {
	DonorResponse
	Donor *DonorSummary `json:"donor,omitempty"`
}

// AlertView is an alert joined with hospital and donor display data, the
// shape the dashboard consumes.
type AlertView struct {
	Alert
	Hospital        *HospitalSummary `json:"hospital,omitempty"`
	ResponseDetails []ResponseView   `json:"responseDetails"`
	NotifiedDetails []DonorSummary   `json:"notifiedDonorDetails"`
}
