package cleanup

import (
	"context"
	"log/slog"
	"time"
)

func NewScheduler(logger *slog.Logger, service *Service, interval time.Duration) Scheduler {
	return Scheduler{
		logger:   logger,
		service:  service,
		interval: interval,
	}
}

// Scheduler runs cleanup periodically. It is only started when an interval is
// configured.
type Scheduler struct {
	logger   *slog.Logger
	service  *Service
	interval time.Duration
}

func (s Scheduler) Start(ctx context.Context) {
	s.logger.InfoContext(ctx, "Starting cleanup scheduler", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "Stopping cleanup scheduler")
			return
		case <-ticker.C:
			if _, err := s.service.Run(ctx, false); err != nil {
				s.logger.ErrorContext(ctx, "Scheduled cleanup run failed", "error", err)
			}
		}
	}
}
