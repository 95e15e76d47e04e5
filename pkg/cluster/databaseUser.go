package cluster

import (
	"context"

	"github.com/hackday-sre/cluster-manager/internal/errdef"
	"github.com/hackday-sre/cluster-manager/pkg/atlas"
	"github.com/hackday-sre/cluster-manager/pkg/model"
)

// DatabaseUser is what listing returns. Passwords are write-only on the remote
// side and never appear in any read response.
type DatabaseUser struct {
	Username     string   `json:"username"`
	DatabaseName string   `json:"databaseName"`
	Roles        []string `json:"roles"`
}

// CreateDatabaseUser adds a database user to the cluster. The quota and
// duplicate checks run before any remote call so an invalid request leaves no
// partial remote state. The returned credentials are handed out exactly once.
func (s *Service) CreateDatabaseUser(ctx context.Context, user *model.User, cluster model.Cluster, username, password string, roles []string) (model.Credentials, error) {
	if !cluster.Status.IsLive() {
		return model.Credentials{}, errdef.NewBadRequest("cluster %d is not live", cluster.ID)
	}

	// The bootstrap user ships with the cluster and stays outside the quota.
	var quotaUsed uint
	for _, existing := range cluster.DatabaseUsers {
		if existing.Username == username {
			return model.Credentials{}, errdef.NewConflict("database user already exists: %s", username)
		}
		if !existing.Bootstrap {
			quotaUsed++
		}
	}

	maxUsers := s.maxDbUsers(ctx, cluster)
	if quotaUsed+1 > maxUsers {
		return model.Credentials{}, errdef.NewLimitExceeded("maximum %d database users per cluster", maxUsers)
	}

	if password == "" {
		password = generatePassword()
	}
	if len(roles) == 0 {
		roles = []string{"readWriteAnyDatabase"}
	}

	atlasRoles := make([]atlas.Role, len(roles))
	for i, role := range roles {
		atlasRoles[i] = atlas.Role{RoleName: role, DatabaseName: "admin"}
	}

	err := s.atlas.CreateDatabaseUser(ctx, cluster.AtlasProjectID, atlas.DatabaseUser{
		Username:     username,
		Password:     password,
		DatabaseName: "admin",
		Roles:        atlasRoles,
		Scopes:       []atlas.Scope{{Name: cluster.AtlasClusterName, Type: "CLUSTER"}},
	})
	if err != nil {
		return model.Credentials{}, errdef.NewRemoteAPI(err, "failed to create database user %q", username)
	}

	err = s.repository.addDatabaseUser(ctx, &model.ClusterDatabaseUser{
		ClusterID: cluster.ID,
		Username:  username,
		CreatedBy: user.ID,
	})
	if err != nil {
		return model.Credentials{}, err
	}

	s.logger.InfoContext(ctx, "Database user created", "clusterId", cluster.ID, "username", username)

	return model.Credentials{Username: username, Password: password}, nil
}

// ListDatabaseUsers reads from the control plane rather than the local mirror;
// the remote side is the source of truth for roles and scopes.
func (s *Service) ListDatabaseUsers(ctx context.Context, cluster model.Cluster) ([]DatabaseUser, error) {
	remote, err := s.atlas.ListDatabaseUsers(ctx, cluster.AtlasProjectID)
	if err != nil {
		return nil, errdef.NewRemoteAPI(err, "failed to list database users")
	}

	users := make([]DatabaseUser, 0, len(remote))
	for _, user := range remote {
		if !scopedToCluster(user, cluster.AtlasClusterName) {
			continue
		}

		roles := make([]string, len(user.Roles))
		for i, role := range user.Roles {
			roles[i] = role.RoleName
		}
		users = append(users, DatabaseUser{
			Username:     user.Username,
			DatabaseName: user.DatabaseName,
			Roles:        roles,
		})
	}

	return users, nil
}

func (s *Service) DeleteDatabaseUser(ctx context.Context, cluster model.Cluster, username string) error {
	found := false
	for _, existing := range cluster.DatabaseUsers {
		if existing.Username == username {
			found = true
			break
		}
	}
	if !found {
		return errdef.NewNotFound("database user %q doesn't exist on cluster %d", username, cluster.ID)
	}

	err := s.atlas.DeleteDatabaseUser(ctx, cluster.AtlasProjectID, username)
	if err != nil && !atlas.IsNotFound(err) {
		return errdef.NewRemoteAPI(err, "failed to delete database user %q", username)
	}

	return s.repository.removeDatabaseUser(ctx, cluster.ID, username)
}

func (s *Service) maxDbUsers(ctx context.Context, cluster model.Cluster) uint {
	if cluster.Event != nil {
		return cluster.Event.MaxDbUsers()
	}

	event, err := s.events.Find(ctx, cluster.EventID)
	if err != nil {
		return model.DefaultMaxDbUsersPerCluster
	}
	return event.MaxDbUsers()
}

// A user with no scopes applies to every cluster in the project.
func scopedToCluster(user atlas.DatabaseUser, clusterName string) bool {
	if len(user.Scopes) == 0 {
		return true
	}
	for _, scope := range user.Scopes {
		if scope.Type == "CLUSTER" && scope.Name == clusterName {
			return true
		}
	}
	return false
}
