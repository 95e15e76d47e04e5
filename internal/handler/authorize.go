package handler

import (
	"github.com/hackday-sre/cluster-manager/pkg/model"
)

// CanManageCluster returns true if the user may provision, delete or change a
// team's cluster. Only the team leader and administrators qualify.
func CanManageCluster(user *model.User, teamID uint) bool {
	return user.IsAdministrator() || user.IsLeaderOf(teamID)
}

// CanReadCluster returns true if the user may see a team's cluster and its
// users and access list. Any team member and administrators qualify.
func CanReadCluster(user *model.User, teamID uint) bool {
	return user.IsAdministrator() || user.IsMemberOf(teamID) || user.IsLeaderOf(teamID)
}
