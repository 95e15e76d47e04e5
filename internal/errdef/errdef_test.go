package errdef_test

import (
	"errors"
	"testing"

	"github.com/hackday-sre/cluster-manager/internal/errdef"

	"github.com/stretchr/testify/assert"
)

func TestIsForbidden(t *testing.T) {
	assert.False(t, errdef.IsForbidden(errors.New("some error")))
	assert.True(t, errdef.IsForbidden(errdef.NewForbidden("some error")))
}

func TestIsBadRequest(t *testing.T) {
	assert.False(t, errdef.IsBadRequest(errors.New("some error")))
	assert.True(t, errdef.IsBadRequest(errdef.NewBadRequest("some error")))
}

func TestIsUnauthorized(t *testing.T) {
	assert.False(t, errdef.IsUnauthorized(errors.New("some error")))
	assert.True(t, errdef.IsUnauthorized(errdef.NewUnauthorized("some error")))
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, errdef.IsNotFound(errors.New("some error")))
	assert.True(t, errdef.IsNotFound(errdef.NewNotFound("some error")))
}

func TestIsConflict(t *testing.T) {
	assert.False(t, errdef.IsConflict(errors.New("some error")))
	assert.True(t, errdef.IsConflict(errdef.NewConflict("some error")))
}

func TestIsLimitExceeded(t *testing.T) {
	assert.False(t, errdef.IsLimitExceeded(errors.New("some error")))
	assert.True(t, errdef.IsLimitExceeded(errdef.NewLimitExceeded("some error")))
}

func TestIsRemoteAPI(t *testing.T) {
	assert.False(t, errdef.IsRemoteAPI(errors.New("some error")))

	cause := errors.New("connection refused")
	err := errdef.NewRemoteAPI(cause, "failed to create cluster %q", "cluster-team-1")
	assert.True(t, errdef.IsRemoteAPI(err))
	assert.ErrorIs(t, err, cause)
	assert.ErrorContains(t, err, `failed to create cluster "cluster-team-1"`)
}
