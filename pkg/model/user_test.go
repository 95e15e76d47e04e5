package model_test

import (
	"context"
	"testing"

	"github.com/hackday-sre/cluster-manager/pkg/model"
	"github.com/stretchr/testify/assert"
)

func TestUserContext(t *testing.T) {
	id := uint(1000)
	email := "some@thing.dk"
	teams := []model.Team{
		{ID: 1, Name: "rocket"},
		{ID: 2, Name: "lobster"},
	}
	leaderTeams := []model.Team{
		{ID: 1, Name: "rocket"},
	}
	user := &model.User{
		ID:          id,
		Email:       email,
		Teams:       teams,
		LeaderTeams: leaderTeams,
	}

	ctx := context.Background()

	got, ok := model.GetUserFromContext(ctx)
	assert.Nil(t, got, "want nil when no user is in the context")
	assert.False(t, ok, "want an error when no user is in the context")

	ctx = model.NewContextWithUser(ctx, user)

	got, ok = model.GetUserFromContext(ctx)
	assert.True(t, ok)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, email, got.Email)
	assert.Equal(t, 2, len(got.Teams))
	assert.Equal(t, 1, len(got.LeaderTeams))
}

func TestUserTeamRoles(t *testing.T) {
	user := &model.User{
		Teams:       []model.Team{{ID: 1}, {ID: 2}},
		LeaderTeams: []model.Team{{ID: 2}},
	}

	assert.True(t, user.IsMemberOf(1))
	assert.True(t, user.IsMemberOf(2))
	assert.False(t, user.IsMemberOf(3))

	assert.False(t, user.IsLeaderOf(1))
	assert.True(t, user.IsLeaderOf(2))

	assert.False(t, user.IsAdministrator())

	admin := &model.User{Teams: []model.Team{{Name: model.AdministratorTeamName}}}
	assert.True(t, admin.IsAdministrator())
}
