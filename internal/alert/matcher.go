package alert

import (
	"context"

	"LifeLink/internal/auth"
	"LifeLink/internal/donor"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// donorLocator is the geo stage: active donor-role accounts within a
// radius of a point. Satisfied by auth.UserRepository.
type donorLocator interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*auth.User, error)
	FindActiveDonorUserIDsNear(ctx context.Context, point auth.GeoPoint, radiusMeters float64) ([]primitive.ObjectID, error)
}

// eligibleFinder is the attribute stage: donors of the exact blood group
// that are eligible and opted in. Satisfied by donor.Repository.
type eligibleFinder interface {
	FindEligibleByUserIDs(ctx context.Context, userIDs []primitive.ObjectID, group donor.BloodGroup) ([]*donor.Donor, error)
}

// Matcher selects the donors to notify for an alert: active donor
// accounts within the search radius of the hospital, filtered to the exact
// blood group, eligible status, and both opt-in flags. The result is an
// unordered set used only for fan-out.
type Matcher struct {
	users  donorLocator
	donors eligibleFinder
}

func NewMatcher(users *auth.UserRepository, donors *donor.Repository) *Matcher {
	return &Matcher{users: users, donors: donors}
}

// Match runs the two-stage filter around the hospital account's location.
// An unresolvable hospital account yields an empty set, not an error, so
// alert creation is never blocked by a missing location.
func (m *Matcher) Match(ctx context.Context, group donor.BloodGroup, hospitalUserID primitive.ObjectID, radiusKm float64) ([]*donor.Donor, error) {
	hospitalUser, err := m.users.FindByID(ctx, hospitalUserID)
	if err != nil {
		return nil, err
	}
	if hospitalUser == nil {
		return nil, nil
	}

	userIDs, err := m.users.FindActiveDonorUserIDsNear(ctx, hospitalUser.Location, radiusKm*1000)
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	return m.donors.FindEligibleByUserIDs(ctx, userIDs, group)
}
