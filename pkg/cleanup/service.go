package cleanup

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hackday-sre/cluster-manager/pkg/model"
	"golang.org/x/sync/errgroup"
)

// maxParallelDeletes bounds how many cluster deletions run at once within an
// event. Remote project deletion is slow, but the control plane rate limits.
const maxParallelDeletes = 4

type eventService interface {
	FindCleanupCandidates(ctx context.Context) ([]model.Event, error)
}

type clusterService interface {
	FindNonDeletedByEvent(ctx context.Context, eventID uint) ([]model.Cluster, error)
	Delete(ctx context.Context, cluster model.Cluster) error
}

func NewService(logger *slog.Logger, events eventService, clusters clusterService) *Service {
	return &Service{
		logger:   logger,
		events:   events,
		clusters: clusters,
	}
}

type Service struct {
	logger   *slog.Logger
	events   eventService
	clusters clusterService
}

type ClusterError struct {
	ClusterID uint   `json:"clusterId"`
	Error     string `json:"error"`
}

type EventReport struct {
	EventID         uint           `json:"eventId"`
	EventName       string         `json:"eventName"`
	ClustersFound   int            `json:"clustersFound"`
	ClustersDeleted int            `json:"clustersDeleted"`
	Errors          []ClusterError `json:"errors"`
}

type Totals struct {
	ClustersFound   int `json:"clustersFound"`
	ClustersDeleted int `json:"clustersDeleted"`
	Errors          int `json:"errors"`
}

type Report struct {
	DryRun          bool          `json:"dryRun"`
	EventsProcessed int           `json:"eventsProcessed"`
	Totals          Totals        `json:"totals"`
	Reports         []EventReport `json:"reports"`
}

// Preview returns the ids of concluded, auto-cleanup events that still own at
// least one non-deleted cluster. It is a pure read: no record is mutated and
// no remote call is made.
func (s *Service) Preview(ctx context.Context) ([]uint, error) {
	candidates, err := s.events.FindCleanupCandidates(ctx)
	if err != nil {
		return nil, err
	}

	var eventIDs []uint
	for _, event := range candidates {
		clusters, err := s.clusters.FindNonDeletedByEvent(ctx, event.ID)
		if err != nil {
			return nil, err
		}
		if len(clusters) > 0 {
			eventIDs = append(eventIDs, event.ID)
		}
	}

	return eventIDs, nil
}

// Run deletes the clusters of every qualifying event. Events are processed
// sequentially, clusters within an event with bounded parallelism. A failing
// delete is recorded in the report and never aborts the rest of the batch.
// Re-running is idempotent: already deleted clusters aren't enumerated again.
func (s *Service) Run(ctx context.Context, dryRun bool) (Report, error) {
	candidates, err := s.events.FindCleanupCandidates(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{DryRun: dryRun}
	for _, event := range candidates {
		clusters, err := s.clusters.FindNonDeletedByEvent(ctx, event.ID)
		if err != nil {
			return report, err
		}
		if len(clusters) == 0 {
			continue
		}

		eventReport := s.cleanupEvent(ctx, event, clusters, dryRun)

		report.EventsProcessed++
		report.Totals.ClustersFound += eventReport.ClustersFound
		report.Totals.ClustersDeleted += eventReport.ClustersDeleted
		report.Totals.Errors += len(eventReport.Errors)
		report.Reports = append(report.Reports, eventReport)
	}

	s.logger.InfoContext(ctx, "Cleanup run finished",
		"dryRun", dryRun,
		"eventsProcessed", report.EventsProcessed,
		"clustersFound", report.Totals.ClustersFound,
		"clustersDeleted", report.Totals.ClustersDeleted,
		"errors", report.Totals.Errors)

	return report, nil
}

func (s *Service) cleanupEvent(ctx context.Context, event model.Event, clusters []model.Cluster, dryRun bool) EventReport {
	eventReport := EventReport{
		EventID:       event.ID,
		EventName:     event.Name,
		ClustersFound: len(clusters),
	}
	if dryRun {
		return eventReport
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxParallelDeletes)

	for _, cluster := range clusters {
		group.Go(func() error {
			err := s.clusters.Delete(groupCtx, cluster)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.ErrorContext(ctx, "Cleanup failed to delete cluster", "clusterId", cluster.ID, "eventId", event.ID, "error", err)
				eventReport.Errors = append(eventReport.Errors, ClusterError{ClusterID: cluster.ID, Error: err.Error()})
				return nil
			}
			eventReport.ClustersDeleted++
			return nil
		})
	}

	// errors are collected per cluster, the group itself never fails
	_ = group.Wait()

	return eventReport
}
