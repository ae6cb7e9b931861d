package donor

import (
	"testing"

	"LifeLink/pkg/apperr"

	"github.com/stretchr/testify/assert"
)

func TestBloodGroupValid(t *testing.T) {
	for _, g := range AllBloodGroups {
		assert.True(t, g.Valid(), string(g))
	}
	assert.False(t, BloodGroup("O").Valid())
	assert.False(t, BloodGroup("o+").Valid())
	assert.False(t, BloodGroup("").Valid())
}

func TestUpdateProfileRequestValidate(t *testing.T) {
	assert.NoError(t, UpdateProfileRequest{}.Validate())

	group := ABPositive
	weight := 72.5
	status := StatusTemporarilyIneligible
	assert.NoError(t, UpdateProfileRequest{BloodGroup: &group, Weight: &weight, Status: &status}.Validate())

	badGroup := BloodGroup("AB")
	err := UpdateProfileRequest{BloodGroup: &badGroup}.Validate()
	assert.True(t, apperr.IsKind(err, apperr.KindInvalid))

	badStatus := Status("retired")
	err = UpdateProfileRequest{Status: &badStatus}.Validate()
	assert.True(t, apperr.IsKind(err, apperr.KindInvalid))

	for _, w := range []float64{0, -10, 501} {
		bad := w
		err = UpdateProfileRequest{Weight: &bad}.Validate()
		assert.True(t, apperr.IsKind(err, apperr.KindInvalid))
	}
}
