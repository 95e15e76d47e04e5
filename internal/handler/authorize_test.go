package handler

import (
	"testing"

	"github.com/hackday-sre/cluster-manager/pkg/model"
	"github.com/stretchr/testify/assert"
)

func TestCanManageCluster_isTeamLeader(t *testing.T) {
	user := &model.User{
		LeaderTeams: []model.Team{
			{ID: 7},
		},
	}

	assert.True(t, CanManageCluster(user, 7))
	assert.False(t, CanManageCluster(user, 8))
}

func TestCanManageCluster_isTeamMember(t *testing.T) {
	user := &model.User{
		Teams: []model.Team{
			{ID: 7},
		},
	}

	assert.False(t, CanManageCluster(user, 7))
}

func TestCanManageCluster_isAdministrator(t *testing.T) {
	user := &model.User{
		Teams: []model.Team{
			{ID: 3, Name: model.AdministratorTeamName},
			{ID: 4, Name: "other team"},
		},
	}

	assert.True(t, CanManageCluster(user, 7))
}

func TestCanReadCluster_isTeamMember(t *testing.T) {
	user := &model.User{
		Teams: []model.Team{
			{ID: 7},
		},
	}

	assert.True(t, CanReadCluster(user, 7))
	assert.False(t, CanReadCluster(user, 8))
}

func TestCanReadCluster_isTeamLeader(t *testing.T) {
	user := &model.User{
		LeaderTeams: []model.Team{
			{ID: 7},
		},
	}

	assert.True(t, CanReadCluster(user, 7))
}

func TestCanReadCluster_isAdministrator(t *testing.T) {
	user := &model.User{
		Teams: []model.Team{
			{ID: 3, Name: model.AdministratorTeamName},
		},
	}

	assert.True(t, CanReadCluster(user, 7))
}
