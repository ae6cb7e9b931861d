package alert

import (
	"context"
	"testing"

	"LifeLink/internal/auth"
	"LifeLink/internal/donor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeLocator emulates the geo stage: every user on the nearby list is
// returned when they carry the donor role and an active account.
type fakeLocator struct {
	users        map[primitive.ObjectID]*auth.User
	nearby       map[primitive.ObjectID]bool
	radiusMeters float64
}

func (f *fakeLocator) FindByID(_ context.Context, id primitive.ObjectID) (*auth.User, error) {
	return f.users[id], nil
}

func (f *fakeLocator) FindActiveDonorUserIDsNear(_ context.Context, _ auth.GeoPoint, radiusMeters float64) ([]primitive.ObjectID, error) {
	f.radiusMeters = radiusMeters
	var out []primitive.ObjectID
	for id, u := range f.users {
		if u.Role == auth.RoleDonor && u.IsActive && f.nearby[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// fakeFinder emulates the attribute stage with the same predicates the
// store filter applies.
type fakeFinder struct {
	donors []*donor.Donor
}

func (f *fakeFinder) FindEligibleByUserIDs(_ context.Context, userIDs []primitive.ObjectID, group donor.BloodGroup) ([]*donor.Donor, error) {
	inSet := make(map[primitive.ObjectID]bool, len(userIDs))
	for _, id := range userIDs {
		inSet[id] = true
	}
	var out []*donor.Donor
	for _, d := range f.donors {
		if inSet[d.UserID] && d.BloodGroup == group && d.Status == donor.StatusEligible &&
			d.AvailableForEmergency && d.NotificationsEnabled {
			out = append(out, d)
		}
	}
	return out, nil
}

type matchFixture struct {
	matcher        *Matcher
	locator        *fakeLocator
	finder         *fakeFinder
	hospitalUserID primitive.ObjectID
}

func newMatchFixture() *matchFixture {
	locator := &fakeLocator{
		users:  make(map[primitive.ObjectID]*auth.User),
		nearby: make(map[primitive.ObjectID]bool),
	}
	finder := &fakeFinder{}

	hospitalUserID := primitive.NewObjectID()
	locator.users[hospitalUserID] = &auth.User{
		ID:       hospitalUserID,
		Role:     auth.RoleHospital,
		IsActive: true,
		Location: auth.NewGeoPoint(77.59, 12.97),
	}

	return &matchFixture{
		matcher:        &Matcher{users: locator, donors: finder},
		locator:        locator,
		finder:         finder,
		hospitalUserID: hospitalUserID,
	}
}

type donorCase struct {
	accountActive         bool
	nearby                bool
	bloodGroup            donor.BloodGroup
	donorStatus           donor.Status
	availableForEmergency bool
	notificationsEnabled  bool
}

func (f *matchFixture) addDonor(c donorCase) *donor.Donor {
	userID := primitive.NewObjectID()
	f.locator.users[userID] = &auth.User{
		ID:       userID,
		Role:     auth.RoleDonor,
		IsActive: c.accountActive,
	}
	f.locator.nearby[userID] = c.nearby
	d := &donor.Donor{
		ID:                    primitive.NewObjectID(),
		UserID:                userID,
		BloodGroup:            c.bloodGroup,
		Status:                c.donorStatus,
		AvailableForEmergency: c.availableForEmergency,
		NotificationsEnabled:  c.notificationsEnabled,
	}
	f.finder.donors = append(f.finder.donors, d)
	return d
}

func eligibleCase() donorCase {
	return donorCase{
		accountActive:         true,
		nearby:                true,
		bloodGroup:            donor.ONegative,
		donorStatus:           donor.StatusEligible,
		availableForEmergency: true,
		notificationsEnabled:  true,
	}
}

func TestMatchRequiresEveryPredicate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*donorCase)
		matched bool
	}{
		{"all predicates hold", func(*donorCase) {}, true},
		{"inactive account", func(s *donorCase) { s.accountActive = false }, false},
		{"outside radius", func(s *donorCase) { s.nearby = false }, false},
		{"different blood group", func(s *donorCase) { s.bloodGroup = donor.OPositive }, false},
		{"temporarily ineligible", func(s *donorCase) { s.donorStatus = donor.StatusTemporarilyIneligible }, false},
		{"not available for emergencies", func(s *donorCase) { s.availableForEmergency = false }, false},
		{"notifications disabled", func(s *donorCase) { s.notificationsEnabled = false }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newMatchFixture()
			c := eligibleCase()
			tc.mutate(&c)
			d := f.addDonor(c)

			matched, err := f.matcher.Match(context.Background(), donor.ONegative, f.hospitalUserID, 5)
			require.NoError(t, err)

			if tc.matched {
				require.Len(t, matched, 1)
				assert.Equal(t, d.ID, matched[0].ID)
			} else {
				assert.Empty(t, matched)
			}
		})
	}
}

func TestMatchSelectsOnlyQualifyingDonors(t *testing.T) {
	f := newMatchFixture()
	d1 := f.addDonor(eligibleCase())
	d2 := f.addDonor(eligibleCase())

	muted := eligibleCase()
	muted.notificationsEnabled = false
	f.addDonor(muted)

	far := eligibleCase()
	far.nearby = false
	f.addDonor(far)

	matched, err := f.matcher.Match(context.Background(), donor.ONegative, f.hospitalUserID, 5)
	require.NoError(t, err)

	got := make([]primitive.ObjectID, 0, len(matched))
	for _, d := range matched {
		got = append(got, d.ID)
	}
	assert.ElementsMatch(t, []primitive.ObjectID{d1.ID, d2.ID}, got)
}

func TestMatchUnknownHospitalAccountYieldsEmptySet(t *testing.T) {
	f := newMatchFixture()
	f.addDonor(eligibleCase())

	matched, err := f.matcher.Match(context.Background(), donor.ONegative, primitive.NewObjectID(), 5)

	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestMatchConvertsRadiusToMeters(t *testing.T) {
	f := newMatchFixture()

	_, err := f.matcher.Match(context.Background(), donor.ONegative, f.hospitalUserID, 7.5)

	require.NoError(t, err)
	assert.Equal(t, 7500.0, f.locator.radiusMeters)
}
