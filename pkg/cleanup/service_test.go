package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/hackday-sre/cluster-manager/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview(t *testing.T) {
	t.Run("ReturnsOnlyEventsWithRemainingClusters", func(t *testing.T) {
		events := &fakeEventService{candidates: []model.Event{{ID: 1}, {ID: 2}}}
		clusters := &fakeClusterService{clusters: map[uint][]model.Cluster{
			1: {{ID: 10, EventID: 1, Status: model.ClusterStatusActive}},
		}}
		service := newTestService(events, clusters)

		eventIDs, err := service.Preview(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []uint{1}, eventIDs)
		assert.Zero(t, clusters.deletes, "preview must not delete anything")
	})

	t.Run("ReturnsNothingWithoutCandidates", func(t *testing.T) {
		service := newTestService(&fakeEventService{}, &fakeClusterService{})

		eventIDs, err := service.Preview(context.Background())

		require.NoError(t, err)
		assert.Empty(t, eventIDs)
	})
}

func TestRun(t *testing.T) {
	t.Run("DeletesAllClustersOfConcludedEvents", func(t *testing.T) {
		events := &fakeEventService{candidates: []model.Event{{ID: 1, Name: "hackday"}}}
		clusters := &fakeClusterService{clusters: map[uint][]model.Cluster{
			1: {
				{ID: 10, EventID: 1, Status: model.ClusterStatusActive},
				{ID: 11, EventID: 1, Status: model.ClusterStatusIdle},
				{ID: 12, EventID: 1, Status: model.ClusterStatusError},
			},
		}}
		service := newTestService(events, clusters)

		report, err := service.Run(context.Background(), false)

		require.NoError(t, err)
		assert.Equal(t, 1, report.EventsProcessed)
		assert.Equal(t, 3, report.Totals.ClustersFound)
		assert.Equal(t, 3, report.Totals.ClustersDeleted)
		assert.Equal(t, 0, report.Totals.Errors)

		require.Len(t, report.Reports, 1)
		assert.Equal(t, "hackday", report.Reports[0].EventName)
		assert.Equal(t, 3, clusters.deletes)
	})

	t.Run("RecordsFailuresWithoutAbortingTheBatch", func(t *testing.T) {
		events := &fakeEventService{candidates: []model.Event{{ID: 1}}}
		clusters := &fakeClusterService{
			clusters: map[uint][]model.Cluster{
				1: {
					{ID: 10, EventID: 1, Status: model.ClusterStatusActive},
					{ID: 11, EventID: 1, Status: model.ClusterStatusActive},
					{ID: 12, EventID: 1, Status: model.ClusterStatusActive},
				},
			},
			failingClusters: map[uint]error{11: errors.New("remote down")},
		}
		service := newTestService(events, clusters)

		report, err := service.Run(context.Background(), false)

		require.NoError(t, err)
		assert.Equal(t, 3, report.Totals.ClustersFound)
		assert.Equal(t, 2, report.Totals.ClustersDeleted)
		assert.Equal(t, 1, report.Totals.Errors)

		require.Len(t, report.Reports, 1)
		require.Len(t, report.Reports[0].Errors, 1)
		assert.Equal(t, uint(11), report.Reports[0].Errors[0].ClusterID)
		assert.Contains(t, report.Reports[0].Errors[0].Error, "remote down")
	})

	t.Run("DryRunOnlyCounts", func(t *testing.T) {
		events := &fakeEventService{candidates: []model.Event{{ID: 1}}}
		clusters := &fakeClusterService{clusters: map[uint][]model.Cluster{
			1: {{ID: 10, EventID: 1, Status: model.ClusterStatusActive}},
		}}
		service := newTestService(events, clusters)

		report, err := service.Run(context.Background(), true)

		require.NoError(t, err)
		assert.True(t, report.DryRun)
		assert.Equal(t, 1, report.Totals.ClustersFound)
		assert.Equal(t, 0, report.Totals.ClustersDeleted)
		assert.Zero(t, clusters.deletes, "a dry run must not delete anything")
	})

	t.Run("SkipsEventsWithoutRemainingClusters", func(t *testing.T) {
		events := &fakeEventService{candidates: []model.Event{{ID: 1}}}
		clusters := &fakeClusterService{}
		service := newTestService(events, clusters)

		report, err := service.Run(context.Background(), false)

		require.NoError(t, err)
		assert.Equal(t, 0, report.EventsProcessed)
		assert.Empty(t, report.Reports)
	})

	t.Run("SecondRunIsANoop", func(t *testing.T) {
		events := &fakeEventService{candidates: []model.Event{{ID: 1}}}
		clusters := &fakeClusterService{clusters: map[uint][]model.Cluster{
			1: {{ID: 10, EventID: 1, Status: model.ClusterStatusActive}},
		}}
		service := newTestService(events, clusters)

		_, err := service.Run(context.Background(), false)
		require.NoError(t, err)

		report, err := service.Run(context.Background(), false)

		require.NoError(t, err)
		assert.Equal(t, 0, report.Totals.ClustersFound)
		assert.Equal(t, 1, clusters.deletes)
	})
}

func newTestService(events *fakeEventService, clusters *fakeClusterService) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, events, clusters)
}

type fakeEventService struct {
	candidates []model.Event
}

func (f *fakeEventService) FindCleanupCandidates(ctx context.Context) ([]model.Event, error) {
	return f.candidates, nil
}

type fakeClusterService struct {
	mu              sync.Mutex
	clusters        map[uint][]model.Cluster
	failingClusters map[uint]error
	deletes         int
}

func (f *fakeClusterService) FindNonDeletedByEvent(ctx context.Context, eventID uint) ([]model.Cluster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var remaining []model.Cluster
	for _, cluster := range f.clusters[eventID] {
		if cluster.Status != model.ClusterStatusDeleted {
			remaining = append(remaining, cluster)
		}
	}
	return remaining, nil
}

func (f *fakeClusterService) Delete(ctx context.Context, cluster model.Cluster) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failingClusters[cluster.ID]; ok {
		return err
	}

	clusters := f.clusters[cluster.EventID]
	for i := range clusters {
		if clusters[i].ID == cluster.ID {
			clusters[i].Status = model.ClusterStatusDeleted
		}
	}
	f.deletes++
	return nil
}
