package alert

import (
	"context"
	"sort"
	"testing"
	"time"

	"LifeLink/internal/auth"
	"LifeLink/internal/donor"
	"LifeLink/internal/hospital"
	"LifeLink/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// -- Fakes --

type fakeAlertStore struct {
	alerts  map[primitive.ObjectID]*Alert
	inserts int
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{alerts: make(map[primitive.ObjectID]*Alert)}
}

func (f *fakeAlertStore) Insert(_ context.Context, a *Alert) error {
	f.inserts++
	cp := *a
	f.alerts[a.ID] = &cp
	return nil
}

func (f *fakeAlertStore) FindByID(_ context.Context, id primitive.ObjectID) (*Alert, error) {
	a, ok := f.alerts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	cp.Responses = append([]DonorResponse(nil), a.Responses...)
	return &cp, nil
}

func (f *fakeAlertStore) SetNotifiedDonors(_ context.Context, id primitive.ObjectID, donorIDs []primitive.ObjectID) error {
	if a, ok := f.alerts[id]; ok {
		a.NotifiedDonors = donorIDs
	}
	return nil
}

func (f *fakeAlertStore) UpsertResponse(_ context.Context, alertID primitive.ObjectID, resp DonorResponse) error {
	a, ok := f.alerts[alertID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	a.Responses = applyResponse(a.Responses, resp)
	return nil
}

func (f *fakeAlertStore) SetStatus(_ context.Context, id primitive.ObjectID, status Status) error {
	a, ok := f.alerts[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	a.Status = status
	return nil
}

func (f *fakeAlertStore) FindActive(_ context.Context, now time.Time) ([]*Alert, error) {
	var out []*Alert
	for _, a := range f.alerts {
		if a.Status == StatusActive && a.ExpiresAt.After(now) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeAlertStore) FindByHospital(_ context.Context, hospitalID primitive.ObjectID, status Status) ([]*Alert, error) {
	var out []*Alert
	for _, a := range f.alerts {
		if a.HospitalID != hospitalID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fakeUserStore struct {
	users map[primitive.ObjectID]*auth.User
}

func (f *fakeUserStore) FindByID(_ context.Context, id primitive.ObjectID) (*auth.User, error) {
	return f.users[id], nil
}

func (f *fakeUserStore) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]*auth.User, error) {
	var out []*auth.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeDonorStore struct {
	donors map[primitive.ObjectID]*donor.Donor
}

func (f *fakeDonorStore) FindByUserID(_ context.Context, userID primitive.ObjectID) (*donor.Donor, error) {
	for _, d := range f.donors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeDonorStore) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]*donor.Donor, error) {
	var out []*donor.Donor
	for _, id := range ids {
		if d, ok := f.donors[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeHospitalStore struct {
	hospitals  map[primitive.ObjectID]*hospital.Hospital
	increments int
}

func (f *fakeHospitalStore) FindByID(_ context.Context, id primitive.ObjectID) (*hospital.Hospital, error) {
	return f.hospitals[id], nil
}

func (f *fakeHospitalStore) FindByUserID(_ context.Context, userID primitive.ObjectID) (*hospital.Hospital, error) {
	for _, h := range f.hospitals {
		if h.UserID == userID {
			return h, nil
		}
	}
	return nil, nil
}

func (f *fakeHospitalStore) IncrementAlertsRaised(_ context.Context, id primitive.ObjectID) error {
	f.increments++
	if h, ok := f.hospitals[id]; ok {
		h.TotalAlertsRaised++
	}
	return nil
}

type fakeMatcher struct {
	matched []*donor.Donor
	calls   int
}

func (f *fakeMatcher) Match(_ context.Context, _ donor.BloodGroup, _ primitive.ObjectID, _ float64) ([]*donor.Donor, error) {
	f.calls++
	return f.matched, nil
}

type fakeNotifier struct {
	recipients [][]Recipient
	messages   []Message
}

func (f *fakeNotifier) Dispatch(_ context.Context, recipients []Recipient, msg Message) []Delivery {
	f.recipients = append(f.recipients, recipients)
	f.messages = append(f.messages, msg)
	var deliveries []Delivery
	for _, r := range recipients {
		if r.Email != "" {
			deliveries = append(deliveries, Delivery{Recipient: r.Name, Channel: ChannelEmail, OK: true})
		}
	}
	return deliveries
}

// -- Fixtures --

type fixture struct {
	svc       *Service
	alerts    *fakeAlertStore
	users     *fakeUserStore
	donors    *fakeDonorStore
	hospitals *fakeHospitalStore
	matcher   *fakeMatcher
	notifier  *fakeNotifier

	hospitalUserID primitive.ObjectID
	hospitalID     primitive.ObjectID
}

func newFixture() *fixture {
	f := &fixture{
		alerts:    newFakeAlertStore(),
		users:     &fakeUserStore{users: make(map[primitive.ObjectID]*auth.User)},
		donors:    &fakeDonorStore{donors: make(map[primitive.ObjectID]*donor.Donor)},
		hospitals: &fakeHospitalStore{hospitals: make(map[primitive.ObjectID]*hospital.Hospital)},
		matcher:   &fakeMatcher{},
		notifier:  &fakeNotifier{},
	}
	f.svc = &Service{
		alerts:     f.alerts,
		users:      f.users,
		donors:     f.donors,
		hospitals:  f.hospitals,
		matcher:    f.matcher,
		dispatcher: f.notifier,
		log:        zap.NewNop(),
	}

	f.hospitalUserID = primitive.NewObjectID()
	f.hospitalID = primitive.NewObjectID()
	f.users.users[f.hospitalUserID] = &auth.User{
		ID:    f.hospitalUserID,
		Name:  "City General",
		Email: "contact@citygeneral.org",
		Role:  auth.RoleHospital,
	}
	f.hospitals.hospitals[f.hospitalID] = &hospital.Hospital{
		ID:           f.hospitalID,
		UserID:       f.hospitalUserID,
		HospitalName: "City General",
	}
	return f
}

func (f *fixture) addDonor(name string, group donor.BloodGroup) *donor.Donor {
	userID := primitive.NewObjectID()
	f.users.users[userID] = &auth.User{
		ID:    userID,
		Name:  name,
		Email: name + "@example.com",
		Phone: "+1555",
		Role:  auth.RoleDonor,
	}
	d := &donor.Donor{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		BloodGroup: group,
		Status:     donor.StatusEligible,
	}
	f.donors.donors[d.ID] = d
	return d
}

func validCreateRequest() CreateAlertRequest {
	return CreateAlertRequest{
		BloodGroup:       donor.OPositive,
		UnitsNeeded:      3,
		Priority:         PriorityHigh,
		PatientCondition: "surgery",
		RequiredBy:       time.Now().Add(6 * time.Hour),
	}
}

// -- Create --

func TestCreateUnknownHospitalFailsBeforePersistence(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), primitive.NewObjectID(), validCreateRequest())

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Equal(t, 0, f.alerts.inserts)
	assert.Equal(t, 0, f.matcher.calls)
	assert.Empty(t, f.notifier.messages)
}

func TestCreateValidationRejectedBeforeLifecycle(t *testing.T) {
	f := newFixture()

	for _, req := range []CreateAlertRequest{
		{BloodGroup: "X+", UnitsNeeded: 3, Priority: PriorityHigh, PatientCondition: "c", RequiredBy: time.Now()},
		{BloodGroup: donor.OPositive, UnitsNeeded: 0, Priority: PriorityHigh, PatientCondition: "c", RequiredBy: time.Now()},
		{BloodGroup: donor.OPositive, UnitsNeeded: 51, Priority: PriorityHigh, PatientCondition: "c", RequiredBy: time.Now()},
		{BloodGroup: donor.OPositive, UnitsNeeded: 3, Priority: "urgent", PatientCondition: "c", RequiredBy: time.Now()},
		{BloodGroup: donor.OPositive, UnitsNeeded: 3, Priority: PriorityHigh, PatientCondition: "c", RequiredBy: time.Now(), SearchRadius: 51},
	} {
		_, err := f.svc.Create(context.Background(), f.hospitalUserID, req)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindInvalid))
	}
	assert.Equal(t, 0, f.alerts.inserts)
}

func TestCreateNotifiesMatchedDonorsAndRecordsThem(t *testing.T) {
	f := newFixture()
	d1 := f.addDonor("d1", donor.OPositive)
	d2 := f.addDonor("d2", donor.OPositive)
	f.matcher.matched = []*donor.Donor{d1, d2}

	view, err := f.svc.Create(context.Background(), f.hospitalUserID, validCreateRequest())

	require.NoError(t, err)
	assert.ElementsMatch(t, []primitive.ObjectID{d1.ID, d2.ID}, view.NotifiedDonors)

	stored, _ := f.alerts.FindByID(context.Background(), view.Alert.ID)
	assert.ElementsMatch(t, []primitive.ObjectID{d1.ID, d2.ID}, stored.NotifiedDonors)

	require.Len(t, f.notifier.recipients, 1)
	assert.Len(t, f.notifier.recipients[0], 2)
	assert.Contains(t, f.notifier.messages[0].Body, "City General")
	assert.Contains(t, f.notifier.messages[0].Body, "O+")
	assert.Equal(t, 1, f.hospitals.increments)
}

func TestCreateWithZeroMatchesStillSucceeds(t *testing.T) {
	f := newFixture()

	view, err := f.svc.Create(context.Background(), f.hospitalUserID, validCreateRequest())

	require.NoError(t, err)
	assert.Equal(t, StatusActive, view.Status)
	assert.Empty(t, view.NotifiedDonors)
	assert.Empty(t, f.notifier.messages)
	assert.Equal(t, 1, f.alerts.inserts)
}

func TestCreateSetsTwentyFourHourExpiry(t *testing.T) {
	f := newFixture()
	before := time.Now()

	view, err := f.svc.Create(context.Background(), f.hospitalUserID, validCreateRequest())

	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(ExpiryWindow), view.ExpiresAt, 5*time.Second)
	assert.Equal(t, float64(DefaultSearchRadiusKm), view.SearchRadius)
}

// -- Respond --

func TestRespondUnknownAlert(t *testing.T) {
	f := newFixture()
	d := f.addDonor("d1", donor.OPositive)

	_, err := f.svc.Respond(context.Background(), primitive.NewObjectID(), d.UserID, RespondRequest{Status: ResponseAccepted})

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestRespondUnknownDonorProfile(t *testing.T) {
	f := newFixture()
	view, err := f.svc.Create(context.Background(), f.hospitalUserID, validCreateRequest())
	require.NoError(t, err)

	_, err = f.svc.Respond(context.Background(), view.Alert.ID, primitive.NewObjectID(), RespondRequest{Status: ResponseAccepted})

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestRespondTwiceKeepsSingleEntry(t *testing.T) {
	f := newFixture()
	d := f.addDonor("d1", donor.OPositive)
	view, err := f.svc.Create(context.Background(), f.hospitalUserID, validCreateRequest())
	require.NoError(t, err)

	_, err = f.svc.Respond(context.Background(), view.Alert.ID, d.UserID, RespondRequest{Status: ResponseAccepted, Notes: "on my way"})
	require.NoError(t, err)

	updated, err := f.svc.Respond(context.Background(), view.Alert.ID, d.UserID, RespondRequest{Status: ResponseDeclined, Notes: "can't make it"})
	require.NoError(t, err)

	require.Len(t, updated.Responses, 1)
	assert.Equal(t, d.ID, updated.Responses[0].DonorID)
	assert.Equal(t, ResponseDeclined, updated.Responses[0].Status)
	assert.Equal(t, "can't make it", updated.Responses[0].Notes)
}

func TestRespondDistinctDonorsAppend(t *testing.T) {
	f := newFixture()
	d1 := f.addDonor("d1", donor.OPositive)
	d2 := f.addDonor("d2", donor.OPositive)
	view, err := f.svc.Create(context.Background(), f.hospitalUserID, validCreateRequest())
	require.NoError(t, err)

	_, err = f.svc.Respond(context.Background(), view.Alert.ID, d1.UserID, RespondRequest{Status: ResponseAccepted})
	require.NoError(t, err)
	updated, err := f.svc.Respond(context.Background(), view.Alert.ID, d2.UserID, RespondRequest{Status: ResponseDeclined})
	require.NoError(t, err)

	assert.Len(t, updated.Responses, 2)
}

func TestRespondRejectedWhenNotActive(t *testing.T) {
	f := newFixture()
	d := f.addDonor("d1", donor.OPositive)
	view, err := f.svc.Create(context.Background(), f.hospitalUserID, validCreateRequest())
	require.NoError(t, err)
	require.NoError(t, f.alerts.SetStatus(context.Background(), view.Alert.ID, StatusFulfilled))

	_, err = f.svc.Respond(context.Background(), view.Alert.ID, d.UserID, RespondRequest{Status: ResponseAccepted})

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	stored, _ := f.alerts.FindByID(context.Background(), view.Alert.ID)
	assert.Empty(t, stored.Responses)
}

func TestRespondRejectedWhenPastExpiry(t *testing.T) {
	f := newFixture()
	d := f.addDonor("d1", donor.OPositive)
	view, err := f.svc.Create(context.Background(), f.hospitalUserID, validCreateRequest())
	require.NoError(t, err)
	f.alerts.alerts[view.Alert.ID].ExpiresAt = time.Now().Add(-time.Minute)

	_, err = f.svc.Respond(context.Background(), view.Alert.ID, d.UserID, RespondRequest{Status: ResponseAccepted})

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestRespondNotifiesHospitalByEmail(t *testing.T) {
	f := newFixture()
	d := f.addDonor("d1", donor.OPositive)
	view, err := f.svc.Create(context.Background(), f.hospitalUserID, validCreateRequest())
	require.NoError(t, err)

	_, err = f.svc.Respond(context.Background(), view.Alert.ID, d.UserID, RespondRequest{Status: ResponseAccepted})
	require.NoError(t, err)

	require.Len(t, f.notifier.messages, 1)
	require.Len(t, f.notifier.recipients[0], 1)
	assert.Equal(t, "contact@citygeneral.org", f.notifier.recipients[0][0].Email)
	assert.Contains(t, f.notifier.messages[0].Body, "accepted")
}

// -- UpdateStatus --

func TestUpdateStatusByNonOwnerForbidden(t *testing.T) {
	f := newFixture()
	view, err := f.svc.Create(context.Background(), f.hospitalUserID, validCreateRequest())
	require.NoError(t, err)

	otherUserID := primitive.NewObjectID()
	otherHospital := &hospital.Hospital{ID: primitive.NewObjectID(), UserID: otherUserID, HospitalName: "Other"}
	f.hospitals.hospitals[otherHospital.ID] = otherHospital

	_, err = f.svc.UpdateStatus(context.Background(), view.Alert.ID, otherUserID, UpdateStatusRequest{Status: StatusCancelled})

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	stored, _ := f.alerts.FindByID(context.Background(), view.Alert.ID)
	assert.Equal(t, StatusActive, stored.Status)
}

func TestUpdateStatusByOwner(t *testing.T) {
	f := newFixture()
	view, err := f.svc.Create(context.Background(), f.hospitalUserID, validCreateRequest())
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(context.Background(), view.Alert.ID, f.hospitalUserID, UpdateStatusRequest{Status: StatusFulfilled})

	require.NoError(t, err)
	assert.Equal(t, StatusFulfilled, updated.Status)

	stored, _ := f.alerts.FindByID(context.Background(), view.Alert.ID)
	assert.Equal(t, StatusFulfilled, stored.Status)
}

func TestUpdateStatusUnknownAlert(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdateStatus(context.Background(), primitive.NewObjectID(), f.hospitalUserID, UpdateStatusRequest{Status: StatusCancelled})

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

// -- Listings --

func TestActiveAlertsOrderedByPriorityThenRecency(t *testing.T) {
	f := newFixture()
	now := time.Now()

	mk := func(p Priority, age time.Duration) primitive.ObjectID {
		a := &Alert{
			ID:         primitive.NewObjectID(),
			HospitalID: f.hospitalID,
			BloodGroup: donor.OPositive,
			Priority:   p,
			Status:     StatusActive,
			ExpiresAt:  now.Add(time.Hour),
			CreatedAt:  now.Add(-age),
		}
		require.NoError(t, f.alerts.Insert(context.Background(), a))
		return a.ID
	}

	lowID := mk(PriorityLow, time.Minute)
	criticalOldID := mk(PriorityCritical, 3*time.Minute)
	criticalNewID := mk(PriorityCritical, 2*time.Minute)
	highID := mk(PriorityHigh, 4*time.Minute)

	// Expired and terminal alerts never show up.
	expired := &Alert{ID: primitive.NewObjectID(), HospitalID: f.hospitalID, Priority: PriorityCritical, Status: StatusActive, ExpiresAt: now.Add(-time.Minute), CreatedAt: now}
	require.NoError(t, f.alerts.Insert(context.Background(), expired))
	cancelled := &Alert{ID: primitive.NewObjectID(), HospitalID: f.hospitalID, Priority: PriorityCritical, Status: StatusCancelled, ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	require.NoError(t, f.alerts.Insert(context.Background(), cancelled))

	views, err := f.svc.ActiveAlerts(context.Background())
	require.NoError(t, err)

	got := make([]primitive.ObjectID, 0, len(views))
	for _, v := range views {
		got = append(got, v.Alert.ID)
	}
	assert.Equal(t, []primitive.ObjectID{criticalNewID, criticalOldID, highID, lowID}, got)
}

func TestHospitalAlertsFilteredByStatus(t *testing.T) {
	f := newFixture()

	v1, err := f.svc.Create(context.Background(), f.hospitalUserID, validCreateRequest())
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), f.hospitalUserID, validCreateRequest())
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), v1.Alert.ID, f.hospitalUserID, UpdateStatusRequest{Status: StatusCancelled})
	require.NoError(t, err)

	all, err := f.svc.HospitalAlerts(context.Background(), f.hospitalUserID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cancelled, err := f.svc.HospitalAlerts(context.Background(), f.hospitalUserID, StatusCancelled)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, v1.Alert.ID, cancelled[0].Alert.ID)
}

func TestHospitalAlertsInvalidStatusFilter(t *testing.T) {
	f := newFixture()

	_, err := f.svc.HospitalAlerts(context.Background(), f.hospitalUserID, Status("bogus"))

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalid))
}

func TestHospitalAlertsUnknownHospital(t *testing.T) {
	f := newFixture()

	_, err := f.svc.HospitalAlerts(context.Background(), primitive.NewObjectID(), "")

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

// -- Joined views --

func TestViewJoinsHospitalAndDonorDisplayData(t *testing.T) {
	f := newFixture()
	d := f.addDonor("dana", donor.OPositive)
	f.matcher.matched = []*donor.Donor{d}

	view, err := f.svc.Create(context.Background(), f.hospitalUserID, validCreateRequest())
	require.NoError(t, err)

	require.NotNil(t, view.Hospital)
	assert.Equal(t, "City General", view.Hospital.HospitalName)
	require.Len(t, view.NotifiedDetails, 1)
	assert.Equal(t, "dana", view.NotifiedDetails[0].Name)

	updated, err := f.svc.Respond(context.Background(), view.Alert.ID, d.UserID, RespondRequest{Status: ResponseAccepted})
	require.NoError(t, err)
	require.Len(t, updated.ResponseDetails, 1)
	require.NotNil(t, updated.ResponseDetails[0].Donor)
	assert.Equal(t, "dana", updated.ResponseDetails[0].Donor.Name)
}
