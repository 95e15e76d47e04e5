package cluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hackday-sre/cluster-manager/internal/errdef"
	"github.com/hackday-sre/cluster-manager/pkg/model"
	"gorm.io/gorm"
)

// errStaleStatus is returned when an optimistic status update finds the record
// no longer in the expected status. Callers re-read and carry on; transitions
// racing a concurrent poll or delete must not be silently overwritten.
var errStaleStatus = errors.New("cluster status changed concurrently")

//goland:noinspection GoExportedFuncWithUnexportedType
func NewRepository(db *gorm.DB) *repository {
	return &repository{db}
}

type repository struct {
	db *gorm.DB
}

func (r repository) find(ctx context.Context, id uint) (model.Cluster, error) {
	var cluster model.Cluster
	err := r.db.
		WithContext(ctx).
		Preload("Event").
		Preload("DatabaseUsers").
		Preload("IPAccessList").
		Where("id = ?", id).
		First(&cluster).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cluster{}, errdef.NewNotFound("cluster with id %d doesn't exist", id)
	}

	if err != nil {
		return model.Cluster{}, fmt.Errorf("failed to find cluster: %v", err)
	}

	return cluster, nil
}

// findLive returns the team's cluster whose status still counts as live, that
// is not deleted and not error.
func (r repository) findLive(ctx context.Context, eventID, teamID uint) (model.Cluster, error) {
	var cluster model.Cluster
	err := r.db.
		WithContext(ctx).
		Where("event_id = ? AND team_id = ?", eventID, teamID).
		Where("status NOT IN ?", terminalFailureStatuses()).
		First(&cluster).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cluster{}, errdef.NewNotFound("no live cluster for team %d", teamID)
	}

	if err != nil {
		return model.Cluster{}, fmt.Errorf("failed to find live cluster: %v", err)
	}

	return cluster, nil
}

type listFilter struct {
	eventID uint
	teamIDs []uint
}

// findAll lists clusters matching the filter. Deleted records are audit
// history and never listed.
func (r repository) findAll(ctx context.Context, filter listFilter) ([]model.Cluster, error) {
	query := r.db.
		WithContext(ctx).
		Preload("DatabaseUsers").
		Preload("IPAccessList").
		Where("status <> ?", model.ClusterStatusDeleted)

	if filter.eventID != 0 {
		query = query.Where("event_id = ?", filter.eventID)
	}
	if filter.teamIDs != nil {
		query = query.Where("team_id IN ?", filter.teamIDs)
	}

	var clusters []model.Cluster
	err := query.Order("updated_at desc").Find(&clusters).Error
	return clusters, err
}

// findNonDeletedByEvent returns every cluster of the event that still has, or
// may still have, a remote counterpart.
func (r repository) findNonDeletedByEvent(ctx context.Context, eventID uint) ([]model.Cluster, error) {
	var clusters []model.Cluster
	err := r.db.
		WithContext(ctx).
		Where("event_id = ?", eventID).
		Where("status <> ?", model.ClusterStatusDeleted).
		Order("id").
		Find(&clusters).Error
	return clusters, err
}

func (r repository) findStaleCreating(ctx context.Context, olderThan time.Time) ([]model.Cluster, error) {
	var clusters []model.Cluster
	err := r.db.
		WithContext(ctx).
		Where("status = ?", model.ClusterStatusCreating).
		Where("created_at < ?", olderThan).
		Order("id").
		Find(&clusters).Error
	return clusters, err
}

func (r repository) create(ctx context.Context, cluster *model.Cluster) error {
	// only use ctx for values (logging) and not cancellation signals on cud operations for now. ctx
	// cancellation can lead to rollbacks which we should decide individually.
	ctx = context.WithoutCancel(ctx)

	err := r.db.WithContext(ctx).Create(cluster).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errdef.NewConflict("a cluster already exists for this team")
	}

	return err
}

func (r repository) save(ctx context.Context, cluster *model.Cluster) error {
	// only use ctx for values (logging) and not cancellation signals on cud operations for now. ctx
	// cancellation can lead to rollbacks which we should decide individually.
	ctx = context.WithoutCancel(ctx)

	return r.db.WithContext(ctx).Save(cluster).Error
}

// updateStatusFrom applies updates only if the record is still in one of the
// expected statuses. A poll and a user triggered delete can race; the
// precondition keeps the loser from clobbering the winner's transition.
func (r repository) updateStatusFrom(ctx context.Context, id uint, expected []model.ClusterStatus, updates map[string]any) error {
	ctx = context.WithoutCancel(ctx)

	result := r.db.
		WithContext(ctx).
		Model(&model.Cluster{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errStaleStatus
	}
	return nil
}

func (r repository) addDatabaseUser(ctx context.Context, user *model.ClusterDatabaseUser) error {
	ctx = context.WithoutCancel(ctx)

	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errdef.NewConflict("database user already exists: %s", user.Username)
	}

	return err
}

func (r repository) removeDatabaseUser(ctx context.Context, clusterID uint, username string) error {
	ctx = context.WithoutCancel(ctx)

	return r.db.
		WithContext(ctx).
		Where("cluster_id = ? AND username = ?", clusterID, username).
		Delete(&model.ClusterDatabaseUser{}).Error
}

func (r repository) addIPAccessEntries(ctx context.Context, entries []model.ClusterIPAccessEntry) error {
	ctx = context.WithoutCancel(ctx)

	return r.db.WithContext(ctx).Create(&entries).Error
}

func (r repository) removeIPAccessEntry(ctx context.Context, clusterID uint, cidrBlocks []string) error {
	ctx = context.WithoutCancel(ctx)

	return r.db.
		WithContext(ctx).
		Where("cluster_id = ? AND cidr_block IN ?", clusterID, cidrBlocks).
		Delete(&model.ClusterIPAccessEntry{}).Error
}

func terminalFailureStatuses() []model.ClusterStatus {
	return []model.ClusterStatus{model.ClusterStatusDeleted, model.ClusterStatusError}
}
