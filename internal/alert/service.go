package alert

import (
	"context"
	"fmt"
	"sort"
	"time"

	"LifeLink/internal/auth"
	"LifeLink/internal/donor"
	"LifeLink/internal/hospital"
	"LifeLink/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type alertStore interface {
	Insert(ctx context.Context, a *Alert) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Alert, error)
	SetNotifiedDonors(ctx context.Context, id primitive.ObjectID, donorIDs []primitive.ObjectID) error
	UpsertResponse(ctx context.Context, alertID primitive.ObjectID, resp DonorResponse) error
	SetStatus(ctx context.Context, id primitive.ObjectID, status Status) error
	FindActive(ctx context.Context, now time.Time) ([]*Alert, error)
	FindByHospital(ctx context.Context, hospitalID primitive.ObjectID, status Status) ([]*Alert, error)
}

type userStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*auth.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*auth.User, error)
}

type donorStore interface {
	FindByUserID(ctx context.Context, userID primitive.ObjectID) (*donor.Donor, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*donor.Donor, error)
}

type hospitalStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*hospital.Hospital, error)
	FindByUserID(ctx context.Context, userID primitive.ObjectID) (*hospital.Hospital, error)
	IncrementAlertsRaised(ctx context.Context, id primitive.ObjectID) error
}

type donorMatcher interface {
	Match(ctx context.Context, group donor.BloodGroup, hospitalUserID primitive.ObjectID, radiusKm float64) ([]*donor.Donor, error)
}

type notifier interface {
	Dispatch(ctx context.Context, recipients []Recipient, msg Message) []Delivery
}

// Service owns every alert state change: creation with donor fan-out,
// response recording, and status transitions. Matching and notification
// failures are logged and swallowed so a provider outage never blocks a
// hospital from raising an alert.
type Service struct {
	alerts     alertStore
	users      userStore
	donors     donorStore
	hospitals  hospitalStore
	matcher    donorMatcher
	dispatcher notifier
	log        *zap.Logger
}

func NewService(
	alerts *Repository,
	users *auth.UserRepository,
	donors *donor.Repository,
	hospitals *hospital.Repository,
	matcher *Matcher,
	dispatcher *Dispatcher,
	log *zap.Logger,
) *Service {
	return &Service{
		alerts:     alerts,
		users:      users,
		donors:     donors,
		hospitals:  hospitals,
		matcher:    matcher,
		dispatcher: dispatcher,
		log:        log,
	}
}

func (s *Service) Create(ctx context.Context, hospitalUserID primitive.ObjectID, req CreateAlertRequest) (*AlertView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hosp, err := s.hospitals.FindByUserID(ctx, hospitalUserID)
	if err != nil {
		return nil, err
	}
	if hosp == nil {
		return nil, apperr.NotFound("hospital profile not found")
	}

	radius := req.SearchRadius
	if radius == 0 {
		radius = DefaultSearchRadiusKm
	}

	now := time.Now()
	a := &Alert{
		ID:               primitive.NewObjectID(),
		HospitalID:       hosp.ID,
		BloodGroup:       req.BloodGroup,
		UnitsNeeded:      req.UnitsNeeded,
		Priority:         req.Priority,
		Status:           StatusActive,
		PatientCondition: req.PatientCondition,
		AdditionalNotes:  req.AdditionalNotes,
		RequiredBy:       req.RequiredBy,
		SearchRadius:     radius,
		Responses:        []DonorResponse{},
		NotifiedDonors:   []primitive.ObjectID{},
		ExpiresAt:        now.Add(ExpiryWindow),
		IsEmergency:      req.IsEmergency,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.alerts.Insert(ctx, a); err != nil {
		return nil, err
	}

	matched, err := s.matcher.Match(ctx, a.BloodGroup, hospitalUserID, radius)
	if err != nil {
		s.log.Warn("donor matching failed", zap.String("alert_id", a.ID.Hex()), zap.Error(err))
		matched = nil
	}

	if len(matched) > 0 {
		s.notifyDonors(ctx, a, hosp, matched)

		notified := make([]primitive.ObjectID, 0, len(matched))
		for _, d := range matched {
			notified = append(notified, d.ID)
		}
		a.NotifiedDonors = notified
		if err := s.alerts.SetNotifiedDonors(ctx, a.ID, notified); err != nil {
			s.log.Warn("failed to record notified donors", zap.String("alert_id", a.ID.Hex()), zap.Error(err))
		}
	}

	if err := s.hospitals.IncrementAlertsRaised(ctx, hosp.ID); err != nil {
		s.log.Warn("failed to increment alerts-raised counter", zap.String("hospital_id", hosp.ID.Hex()), zap.Error(err))
	}

	s.log.Info("alert created",
		zap.String("alert_id", a.ID.Hex()),
		zap.String("blood_group", string(a.BloodGroup)),
		zap.Int("donors_notified", len(a.NotifiedDonors)))

	return s.buildView(ctx, a), nil
}

// notifyDonors fans the urgency message out to every matched donor over
// every channel the donor has contact data for. Best effort only.
func (s *Service) notifyDonors(ctx context.Context, a *Alert, hosp *hospital.Hospital, matched []*donor.Donor) {
	userIDs := make([]primitive.ObjectID, 0, len(matched))
	for _, d := range matched {
		userIDs = append(userIDs, d.UserID)
	}

	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		s.log.Warn("failed to load donor contact data", zap.String("alert_id", a.ID.Hex()), zap.Error(err))
		return
	}
	byID := make(map[primitive.ObjectID]*auth.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	recipients := make([]Recipient, 0, len(matched))
	for _, d := range matched {
		u := byID[d.UserID]
		if u == nil {
			continue
		}
		recipients = append(recipients, Recipient{
			Name:     u.Name,
			Phone:    u.Phone,
			Email:    u.Email,
			FCMToken: d.FCMToken,
		})
	}

	msg := Message{
		Title:        "Blood Donation Alert",
		EmailSubject: "Urgent Blood Donation Request",
		Body: fmt.Sprintf("URGENT: %s needs %s blood. %d units required for %s. Can you help?",
			hosp.HospitalName, a.BloodGroup, a.UnitsNeeded, a.PatientCondition),
	}

	deliveries := s.dispatcher.Dispatch(ctx, recipients, msg)

	failed := 0
	for _, d := range deliveries {
		if !d.OK {
			failed++
		}
	}
	s.log.Info("alert dispatch finished",
		zap.String("alert_id", a.ID.Hex()),
		zap.Int("attempts", len(deliveries)),
		zap.Int("failed", failed))
}

func (s *Service) Respond(ctx context.Context, alertID, donorUserID primitive.ObjectID, req RespondRequest) (*AlertView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	a, err := s.alerts.FindByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.NotFound("alert not found")
	}

	now := time.Now()
	if a.Status != StatusActive || !a.ExpiresAt.After(now) {
		return nil, apperr.Forbidden("alert is no longer active")
	}

	d, err := s.donors.FindByUserID(ctx, donorUserID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.NotFound("donor profile not found")
	}

	resp := DonorResponse{
		DonorID:          d.ID,
		Status:           req.Status,
		ResponseTime:     now,
		EstimatedArrival: req.EstimatedArrival,
		Notes:            req.Notes,
	}
	if err := s.alerts.UpsertResponse(ctx, a.ID, resp); err != nil {
		return nil, err
	}

	s.notifyHospitalOfResponse(ctx, a, d, req.Status)

	updated, err := s.alerts.FindByID(ctx, a.ID)
	if err != nil || updated == nil {
		// The write above succeeded; serve the pre-read copy with the
		// response applied rather than failing the donor.
		a.Responses = applyResponse(a.Responses, resp)
		return s.buildView(ctx, a), nil
	}
	return s.buildView(ctx, updated), nil
}

// applyResponse mirrors the store upsert on an in-memory response list.
func applyResponse(responses []DonorResponse, resp DonorResponse) []DonorResponse {
	for i := range responses {
		if responses[i].DonorID == resp.DonorID {
			responses[i] = resp
			return responses
		}
	}
	return append(responses, resp)
}

// notifyHospitalOfResponse emails the hospital account about the donor's
// decision. Best effort only.
func (s *Service) notifyHospitalOfResponse(ctx context.Context, a *Alert, d *donor.Donor, status ResponseStatus) {
	hosp, err := s.hospitals.FindByID(ctx, a.HospitalID)
	if err != nil || hosp == nil {
		s.log.Warn("failed to resolve hospital for response notification", zap.String("alert_id", a.ID.Hex()), zap.Error(err))
		return
	}
	hospUser, err := s.users.FindByID(ctx, hosp.UserID)
	if err != nil || hospUser == nil {
		s.log.Warn("failed to resolve hospital account for response notification", zap.String("alert_id", a.ID.Hex()), zap.Error(err))
		return
	}

	donorName := "A donor"
	if donorUser, err := s.users.FindByID(ctx, d.UserID); err == nil && donorUser != nil {
		donorName = donorUser.Name
	}

	body := fmt.Sprintf("Donor %s has %s your blood request for %s.", donorName, status, a.BloodGroup)
	s.dispatcher.Dispatch(ctx,
		[]Recipient{{Name: hosp.HospitalName, Email: hospUser.Email}},
		Message{Title: "Blood Donation Response", Body: body})
}

// UpdateStatus overwrites the alert status after an ownership check. No
// transition validation beyond ownership is applied; the normal UI flows
// only offer fulfilled and cancelled from active.
func (s *Service) UpdateStatus(ctx context.Context, alertID, hospitalUserID primitive.ObjectID, req UpdateStatusRequest) (*AlertView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	a, err := s.alerts.FindByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.NotFound("alert not found")
	}

	hosp, err := s.hospitals.FindByUserID(ctx, hospitalUserID)
	if err != nil {
		return nil, err
	}
	if hosp == nil || hosp.ID != a.HospitalID {
		return nil, apperr.Forbidden("not authorized to update this alert")
	}

	if err := s.alerts.SetStatus(ctx, a.ID, req.Status); err != nil {
		return nil, err
	}
	a.Status = req.Status

	s.log.Info("alert status updated",
		zap.String("alert_id", a.ID.Hex()),
		zap.String("status", string(req.Status)))

	return s.buildView(ctx, a), nil
}

// ActiveAlerts lists every live alert, priority descending then creation
// time descending.
func (s *Service) ActiveAlerts(ctx context.Context) ([]*AlertView, error) {
	alerts, err := s.alerts.FindActive(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	// The store returns newest-first; a stable sort on priority keeps the
	// creation-time order within each priority.
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Priority.rank() > alerts[j].Priority.rank()
	})

	views := make([]*AlertView, 0, len(alerts))
	for _, a := range alerts {
		views = append(views, s.buildView(ctx, a))
	}
	return views, nil
}

// HospitalAlerts lists the caller's own alerts, optionally filtered by
// status, newest first.
func (s *Service) HospitalAlerts(ctx context.Context, hospitalUserID primitive.ObjectID, status Status) ([]*AlertView, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Invalid("invalid alert status")
	}

	hosp, err := s.hospitals.FindByUserID(ctx, hospitalUserID)
	if err != nil {
		return nil, err
	}
	if hosp == nil {
		return nil, apperr.NotFound("hospital profile not found")
	}

	alerts, err := s.alerts.FindByHospital(ctx, hosp.ID, status)
	if err != nil {
		return nil, err
	}

	views := make([]*AlertView, 0, len(alerts))
	for _, a := range alerts {
		views = append(views, s.buildView(ctx, a))
	}
	return views, nil
}

// buildView joins hospital and donor display data onto an alert. Join
// failures degrade to a bare view rather than failing the operation.
func (s *Service) buildView(ctx context.Context, a *Alert) *AlertView {
	view := &AlertView{
		Alert:           *a,
		ResponseDetails: []ResponseView{},
		NotifiedDetails: []DonorSummary{},
	}

	if hosp, err := s.hospitals.FindByID(ctx, a.HospitalID); err == nil && hosp != nil {
		summary := &HospitalSummary{ID: hosp.ID, HospitalName: hosp.HospitalName}
		if hospUser, err := s.users.FindByID(ctx, hosp.UserID); err == nil && hospUser != nil {
			summary.Address = hospUser.Address
			summary.Phone = hospUser.Phone
		}
		view.Hospital = summary
	}

	donorIDs := make([]primitive.ObjectID, 0, len(a.Responses)+len(a.NotifiedDonors))
	seen := make(map[primitive.ObjectID]bool)
	for _, r := range a.Responses {
		if !seen[r.DonorID] {
			seen[r.DonorID] = true
			donorIDs = append(donorIDs, r.DonorID)
		}
	}
	for _, id := range a.NotifiedDonors {
		if !seen[id] {
			seen[id] = true
			donorIDs = append(donorIDs, id)
		}
	}

	summaries := s.donorSummaries(ctx, donorIDs)

	for _, r := range a.Responses {
		rv := ResponseView{DonorResponse: r}
		if sum, ok := summaries[r.DonorID]; ok {
			rv.Donor = &sum
		}
		view.ResponseDetails = append(view.ResponseDetails, rv)
	}
	for _, id := range a.NotifiedDonors {
		if sum, ok := summaries[id]; ok {
			view.NotifiedDetails = append(view.NotifiedDetails, sum)
		}
	}
	return view
}

func (s *Service) donorSummaries(ctx context.Context, donorIDs []primitive.ObjectID) map[primitive.ObjectID]DonorSummary {
	summaries := make(map[primitive.ObjectID]DonorSummary)
	if len(donorIDs) == 0 {
		return summaries
	}

	donors, err := s.donors.FindByIDs(ctx, donorIDs)
	if err != nil {
		s.log.Warn("failed to load donor profiles for view", zap.Error(err))
		return summaries
	}

	userIDs := make([]primitive.ObjectID, 0, len(donors))
	for _, d := range donors {
		userIDs = append(userIDs, d.UserID)
	}
	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		s.log.Warn("failed to load donor accounts for view", zap.Error(err))
		users = nil
	}
	nameByUser := make(map[primitive.ObjectID]string, len(users))
	for _, u := range users {
		nameByUser[u.ID] = u.Name
	}

	for _, d := range donors {
		summaries[d.ID] = DonorSummary{
			ID:         d.ID,
			Name:       nameByUser[d.UserID],
			BloodGroup: d.BloodGroup,
		}
	}
	return summaries
}
