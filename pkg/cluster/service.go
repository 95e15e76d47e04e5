package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hackday-sre/cluster-manager/internal/errdef"
	"github.com/hackday-sre/cluster-manager/pkg/atlas"
	"github.com/hackday-sre/cluster-manager/pkg/model"
	"github.com/hackday-sre/cluster-manager/pkg/notification"
)

type eventService interface {
	Find(ctx context.Context, id uint) (model.Event, error)
}

type teamService interface {
	Find(ctx context.Context, id uint) (model.Team, error)
}

// atlasClient is the capability interface to the cloud control plane. The
// production implementation is [atlas.Client]; tests use fakes.
type atlasClient interface {
	CreateProject(ctx context.Context, name string) (atlas.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
	CreateCluster(ctx context.Context, projectID string, spec atlas.ClusterSpec) (atlas.Cluster, error)
	GetCluster(ctx context.Context, projectID, name string) (atlas.Cluster, error)
	DeleteCluster(ctx context.Context, projectID, name string) error
	CreateDatabaseUser(ctx context.Context, projectID string, user atlas.DatabaseUser) error
	ListDatabaseUsers(ctx context.Context, projectID string) ([]atlas.DatabaseUser, error)
	DeleteDatabaseUser(ctx context.Context, projectID, username string) error
	AddAccessListEntries(ctx context.Context, projectID string, entries []atlas.AccessListEntry) error
	ListAccessListEntries(ctx context.Context, projectID string) ([]atlas.AccessListEntry, error)
	DeleteAccessListEntry(ctx context.Context, projectID, entry string) error
}

type clusterRepository interface {
	find(ctx context.Context, id uint) (model.Cluster, error)
	findLive(ctx context.Context, eventID, teamID uint) (model.Cluster, error)
	findAll(ctx context.Context, filter listFilter) ([]model.Cluster, error)
	findNonDeletedByEvent(ctx context.Context, eventID uint) ([]model.Cluster, error)
	findStaleCreating(ctx context.Context, olderThan time.Time) ([]model.Cluster, error)
	create(ctx context.Context, cluster *model.Cluster) error
	save(ctx context.Context, cluster *model.Cluster) error
	updateStatusFrom(ctx context.Context, id uint, expected []model.ClusterStatus, updates map[string]any) error
	addDatabaseUser(ctx context.Context, user *model.ClusterDatabaseUser) error
	removeDatabaseUser(ctx context.Context, clusterID uint, username string) error
	addIPAccessEntries(ctx context.Context, entries []model.ClusterIPAccessEntry) error
	removeIPAccessEntry(ctx context.Context, clusterID uint, cidrBlocks []string) error
}

type publisher interface {
	Publish(ctx context.Context, event notification.Event)
}

func NewService(logger *slog.Logger, repository clusterRepository, events eventService, teams teamService, client atlasClient, publisher publisher, defaultAccessListCIDR string, staleCreatingMaxAge time.Duration) *Service {
	return &Service{
		logger:                logger,
		repository:            repository,
		events:                events,
		teams:                 teams,
		atlas:                 client,
		publisher:             publisher,
		defaultAccessListCIDR: defaultAccessListCIDR,
		staleCreatingMaxAge:   staleCreatingMaxAge,
	}
}

type Service struct {
	logger                *slog.Logger
	repository            clusterRepository
	events                eventService
	teams                 teamService
	atlas                 atlasClient
	publisher             publisher
	defaultAccessListCIDR string
	staleCreatingMaxAge   time.Duration
}

func (s *Service) FindByID(ctx context.Context, id uint) (model.Cluster, error) {
	return s.repository.find(ctx, id)
}

func (s *Service) FindAll(ctx context.Context, eventID uint, teamIDs []uint) ([]model.Cluster, error) {
	return s.repository.findAll(ctx, listFilter{eventID: eventID, teamIDs: teamIDs})
}

// FindNonDeletedByEvent returns every cluster of the event that still has, or
// may still have, a remote counterpart. Cleanup works off this list.
func (s *Service) FindNonDeletedByEvent(ctx context.Context, eventID uint) ([]model.Cluster, error) {
	return s.repository.findNonDeletedByEvent(ctx, eventID)
}

// Provision creates a cluster for the team end to end: a local write-ahead
// record in status creating, then remote project, cluster, bootstrap database
// user and default access list entry. A failure at any remote step triggers
// compensating deletion of whatever was already created and marks the record
// error. The returned credentials exist only in this return value.
func (s *Service) Provision(ctx context.Context, user *model.User, eventID, teamID uint, provider, region string) (model.Cluster, model.Credentials, error) {
	event, err := s.events.Find(ctx, eventID)
	if err != nil {
		return model.Cluster{}, model.Credentials{}, err
	}
	if !event.ProvisioningEnabled {
		return model.Cluster{}, model.Credentials{}, errdef.NewForbidden("provisioning isn't enabled for event %q", event.Name)
	}

	team, err := s.teams.Find(ctx, teamID)
	if err != nil {
		return model.Cluster{}, model.Credentials{}, err
	}
	if team.EventID != eventID {
		return model.Cluster{}, model.Credentials{}, errdef.NewBadRequest("team %q doesn't belong to event %q", team.Name, event.Name)
	}

	_, err = s.repository.findLive(ctx, eventID, teamID)
	if err == nil {
		return model.Cluster{}, model.Credentials{}, errdef.NewConflict("a cluster already exists for this team")
	}
	if !errdef.IsNotFound(err) {
		return model.Cluster{}, model.Credentials{}, err
	}

	if provider == "" {
		provider = atlas.DefaultProviderName
	}
	if region == "" {
		region = atlas.DefaultRegionName
	}

	// Names are derived from the team id so a retried provision call targets
	// the same remote resources instead of inventing new ones.
	cluster := model.Cluster{
		EventID:          eventID,
		TeamID:           teamID,
		AtlasProjectName: projectName(teamID),
		AtlasClusterName: clusterName(teamID),
		Status:           model.ClusterStatusCreating,
		ProviderName:     provider,
		RegionName:       region,
	}

	// Write-ahead record. If the process dies mid-provision there is a local
	// trace to reconcile instead of an orphaned remote project. The partial
	// unique index turns a racing second provision into a conflict here,
	// before any remote call.
	err = s.repository.create(ctx, &cluster)
	if err != nil {
		return model.Cluster{}, model.Credentials{}, err
	}

	project, err := s.atlas.CreateProject(ctx, cluster.AtlasProjectName)
	if err != nil {
		return model.Cluster{}, model.Credentials{}, s.failProvision(ctx, &cluster, err, "failed to create project %q", cluster.AtlasProjectName)
	}

	cluster.AtlasProjectID = project.ID
	err = s.repository.save(ctx, &cluster)
	if err != nil {
		return model.Cluster{}, model.Credentials{}, s.failProvision(ctx, &cluster, err, "failed to record project id")
	}

	_, err = s.atlas.CreateCluster(ctx, project.ID, atlas.ClusterSpec{
		Name:                cluster.AtlasClusterName,
		ProviderName:        "TENANT",
		BackingProviderName: provider,
		RegionName:          region,
		InstanceSizeName:    atlas.InstanceSizeM0,
	})
	if err != nil {
		return model.Cluster{}, model.Credentials{}, s.failProvision(ctx, &cluster, err, "failed to create cluster %q", cluster.AtlasClusterName)
	}

	credentials := model.Credentials{
		Username: bootstrapUsername(teamID),
		Password: generatePassword(),
	}
	err = s.atlas.CreateDatabaseUser(ctx, project.ID, atlas.DatabaseUser{
		Username:     credentials.Username,
		Password:     credentials.Password,
		DatabaseName: "admin",
		Roles:        []atlas.Role{{RoleName: "readWriteAnyDatabase", DatabaseName: "admin"}},
		Scopes:       []atlas.Scope{{Name: cluster.AtlasClusterName, Type: "CLUSTER"}},
	})
	if err != nil {
		return model.Cluster{}, model.Credentials{}, s.failProvision(ctx, &cluster, err, "failed to create bootstrap database user")
	}

	err = s.atlas.AddAccessListEntries(ctx, project.ID, []atlas.AccessListEntry{
		{CIDRBlock: s.defaultAccessListCIDR, Comment: "default hackathon access"},
	})
	if err != nil {
		return model.Cluster{}, model.Credentials{}, s.failProvision(ctx, &cluster, err, "failed to configure network access")
	}

	err = s.repository.addDatabaseUser(ctx, &model.ClusterDatabaseUser{
		ClusterID: cluster.ID,
		Username:  credentials.Username,
		CreatedBy: user.ID,
		Bootstrap: true,
	})
	if err != nil {
		return model.Cluster{}, model.Credentials{}, err
	}

	err = s.repository.addIPAccessEntries(ctx, []model.ClusterIPAccessEntry{
		{
			ClusterID: cluster.ID,
			CIDRBlock: s.defaultAccessListCIDR,
			Comment:   "default hackathon access",
			AddedAt:   time.Now(),
			AddedBy:   user.ID,
		},
	})
	if err != nil {
		return model.Cluster{}, model.Credentials{}, err
	}

	s.logger.InfoContext(ctx, "Cluster provisioning started", "clusterId", cluster.ID, "teamId", teamID, "project", project.ID)
	s.publisher.Publish(ctx, notification.Event{
		Type:      notification.ClusterProvisioned,
		ClusterID: cluster.ID,
		TeamID:    teamID,
		EventID:   eventID,
	})

	// Status stays creating until a poll observes remote readiness.
	provisioned, err := s.repository.find(ctx, cluster.ID)
	if err != nil {
		return model.Cluster{}, model.Credentials{}, err
	}

	return provisioned, credentials, nil
}

// failProvision rolls back whatever remote resources the failed provision
// already created, marks the record error and wraps cause for the caller.
// Deleting the project takes its clusters, users and access list with it.
func (s *Service) failProvision(ctx context.Context, cluster *model.Cluster, cause error, format string, a ...any) error {
	if cluster.AtlasProjectID != "" {
		err := s.atlas.DeleteCluster(ctx, cluster.AtlasProjectID, cluster.AtlasClusterName)
		if err != nil && !atlas.IsNotFound(err) {
			s.logger.ErrorContext(ctx, "Compensating cluster deletion failed", "clusterId", cluster.ID, "project", cluster.AtlasProjectID, "error", err)
		}

		err = s.atlas.DeleteProject(ctx, cluster.AtlasProjectID)
		if err != nil && !atlas.IsNotFound(err) {
			s.logger.ErrorContext(ctx, "Compensating project deletion failed", "clusterId", cluster.ID, "project", cluster.AtlasProjectID, "error", err)
		}
	}

	message := fmt.Sprintf(format, a...)
	err := s.repository.updateStatusFrom(ctx, cluster.ID,
		[]model.ClusterStatus{model.ClusterStatusCreating},
		map[string]any{
			"status":        model.ClusterStatusError,
			"error_message": fmt.Sprintf("%s: %v", message, cause),
		})
	if err != nil && !errors.Is(err, errStaleStatus) {
		s.logger.ErrorContext(ctx, "Failed to mark cluster as errored", "clusterId", cluster.ID, "error", err)
	}

	s.publisher.Publish(ctx, notification.Event{
		Type:      notification.ClusterErrored,
		ClusterID: cluster.ID,
		TeamID:    cluster.TeamID,
		EventID:   cluster.EventID,
		Message:   message,
	})

	return errdef.NewRemoteAPI(cause, format, a...)
}

func (s *Service) failDelete(ctx context.Context, cluster model.Cluster, cause error, format string, a ...any) error {
	err := s.repository.updateStatusFrom(ctx, cluster.ID,
		[]model.ClusterStatus{model.ClusterStatusDeleting},
		map[string]any{
			"status":        model.ClusterStatusError,
			"error_message": fmt.Sprintf("%s: %v", fmt.Sprintf(format, a...), cause),
		})
	if err != nil && !errors.Is(err, errStaleStatus) {
		s.logger.ErrorContext(ctx, "Failed to mark cluster as errored", "clusterId", cluster.ID, "error", err)
	}

	s.publisher.Publish(ctx, notification.Event{
		Type:      notification.ClusterErrored,
		ClusterID: cluster.ID,
		TeamID:    cluster.TeamID,
		EventID:   cluster.EventID,
		Message:   "deletion failed",
	})

	return errdef.NewRemoteAPI(cause, format, a...)
}

// Delete tears the cluster down. On remote failure the record is marked error
// and kept so the deletion can be retried or forced by an operator.
func (s *Service) Delete(ctx context.Context, cluster model.Cluster) error {
	if cluster.Status == model.ClusterStatusDeleted {
		return nil
	}

	err := s.repository.updateStatusFrom(ctx, cluster.ID,
		[]model.ClusterStatus{
			model.ClusterStatusCreating,
			model.ClusterStatusIdle,
			model.ClusterStatusActive,
			model.ClusterStatusDeleting,
			model.ClusterStatusError,
		},
		map[string]any{"status": model.ClusterStatusDeleting})
	if errors.Is(err, errStaleStatus) {
		// concurrently deleted
		return nil
	}
	if err != nil {
		return err
	}

	// A record that never made it to the remote side has nothing to tear down.
	if cluster.AtlasProjectID != "" {
		// The project can't be closed while it still holds the cluster.
		if cluster.AtlasClusterName != "" {
			err = s.atlas.DeleteCluster(ctx, cluster.AtlasProjectID, cluster.AtlasClusterName)
			if err != nil && !atlas.IsNotFound(err) {
				return s.failDelete(ctx, cluster, err, "failed to delete cluster %q", cluster.AtlasClusterName)
			}
		}

		err = s.atlas.DeleteProject(ctx, cluster.AtlasProjectID)
		if err != nil && !atlas.IsNotFound(err) {
			return s.failDelete(ctx, cluster, err, "failed to delete project %q", cluster.AtlasProjectID)
		}
	}

	err = s.repository.updateStatusFrom(ctx, cluster.ID,
		[]model.ClusterStatus{model.ClusterStatusDeleting},
		map[string]any{
			"status":                     model.ClusterStatusDeleted,
			"connection_string":          "",
			"standard_connection_string": "",
			"error_message":              "",
		})
	if err != nil && !errors.Is(err, errStaleStatus) {
		return err
	}

	s.logger.InfoContext(ctx, "Cluster deleted", "clusterId", cluster.ID, "teamId", cluster.TeamID)
	s.publisher.Publish(ctx, notification.Event{
		Type:      notification.ClusterDeleted,
		ClusterID: cluster.ID,
		TeamID:    cluster.TeamID,
		EventID:   cluster.EventID,
	})

	return nil
}

// Poll reconciles the local record with remote state. It is idempotent, cheap
// on terminal records and safe to call concurrently for the same cluster:
// every transition carries a status precondition, so overlapping polls cannot
// undo each other.
func (s *Service) Poll(ctx context.Context, id uint) (model.Cluster, error) {
	cluster, err := s.repository.find(ctx, id)
	if err != nil {
		return model.Cluster{}, err
	}

	switch cluster.Status {
	case model.ClusterStatusCreating:
		err = s.pollCreating(ctx, cluster)
	case model.ClusterStatusDeleting:
		err = s.pollDeleting(ctx, cluster)
	default:
		// deleted, error, active and idle need no remote confirmation
		return cluster, nil
	}
	if err != nil {
		return model.Cluster{}, err
	}

	return s.repository.find(ctx, id)
}

func (s *Service) pollCreating(ctx context.Context, cluster model.Cluster) error {
	if cluster.AtlasProjectID == "" {
		// provision crashed before the first remote call; reconciliation owns this
		return nil
	}

	remote, err := s.atlas.GetCluster(ctx, cluster.AtlasProjectID, cluster.AtlasClusterName)
	if atlas.IsNotFound(err) {
		// not visible remotely yet
		return nil
	}
	if err != nil {
		return errdef.NewRemoteAPI(err, "failed to read state of cluster %q", cluster.AtlasClusterName)
	}

	if remote.StateName != atlas.StateIdle {
		return nil
	}

	status := model.ClusterStatusActive
	if remote.Paused {
		status = model.ClusterStatusIdle
	}

	err = s.repository.updateStatusFrom(ctx, cluster.ID,
		[]model.ClusterStatus{model.ClusterStatusCreating},
		map[string]any{
			"status":                     status,
			"connection_string":          remote.ConnectionStrings.StandardSrv,
			"standard_connection_string": remote.ConnectionStrings.Standard,
		})
	if errors.Is(err, errStaleStatus) {
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Cluster is reachable", "clusterId", cluster.ID, "status", status)
	return nil
}

func (s *Service) pollDeleting(ctx context.Context, cluster model.Cluster) error {
	if cluster.AtlasProjectID == "" {
		return s.markDeletedFromPoll(ctx, cluster)
	}

	remote, err := s.atlas.GetCluster(ctx, cluster.AtlasProjectID, cluster.AtlasClusterName)
	if atlas.IsNotFound(err) {
		return s.markDeletedFromPoll(ctx, cluster)
	}
	if err != nil {
		return errdef.NewRemoteAPI(err, "failed to read state of cluster %q", cluster.AtlasClusterName)
	}

	if remote.StateName == atlas.StateDeleted {
		return s.markDeletedFromPoll(ctx, cluster)
	}

	return nil
}

func (s *Service) markDeletedFromPoll(ctx context.Context, cluster model.Cluster) error {
	err := s.repository.updateStatusFrom(ctx, cluster.ID,
		[]model.ClusterStatus{model.ClusterStatusDeleting},
		map[string]any{
			"status":                     model.ClusterStatusDeleted,
			"connection_string":          "",
			"standard_connection_string": "",
		})
	if errors.Is(err, errStaleStatus) {
		return nil
	}
	return err
}

// ReconcileStaleCreating converts creating records older than the configured
// age with no confirmed remote cluster to error so their teams can provision
// again. Records whose remote cluster does exist are left for polling.
func (s *Service) ReconcileStaleCreating(ctx context.Context) ([]uint, error) {
	olderThan := time.Now().Add(-s.staleCreatingMaxAge)
	stale, err := s.repository.findStaleCreating(ctx, olderThan)
	if err != nil {
		return nil, err
	}

	var reconciled []uint
	for _, cluster := range stale {
		if cluster.AtlasProjectID != "" {
			_, err := s.atlas.GetCluster(ctx, cluster.AtlasProjectID, cluster.AtlasClusterName)
			if err == nil {
				continue
			}
			if !atlas.IsNotFound(err) {
				s.logger.ErrorContext(ctx, "Reconciliation couldn't confirm remote state", "clusterId", cluster.ID, "error", err)
				continue
			}
		}

		err := s.repository.updateStatusFrom(ctx, cluster.ID,
			[]model.ClusterStatus{model.ClusterStatusCreating},
			map[string]any{
				"status":        model.ClusterStatusError,
				"error_message": "stale provision: no remote cluster was created",
			})
		if errors.Is(err, errStaleStatus) {
			continue
		}
		if err != nil {
			return reconciled, err
		}

		s.logger.InfoContext(ctx, "Reconciled stale cluster", "clusterId", cluster.ID)
		reconciled = append(reconciled, cluster.ID)
	}

	return reconciled, nil
}

func projectName(teamID uint) string {
	return fmt.Sprintf("hackday-team-%d", teamID)
}

func clusterName(teamID uint) string {
	return fmt.Sprintf("cluster-team-%d", teamID)
}

func bootstrapUsername(teamID uint) string {
	return fmt.Sprintf("team-%d-admin", teamID)
}
