package event

import (
	"context"

	"github.com/hackday-sre/cluster-manager/pkg/model"
)

func NewService(eventRepository *repository) Service {
	return Service{eventRepository}
}

type Service struct {
	eventRepository *repository
}

func (s Service) Find(ctx context.Context, id uint) (model.Event, error) {
	return s.eventRepository.find(ctx, id)
}

func (s Service) FindCleanupCandidates(ctx context.Context) ([]model.Event, error) {
	return s.eventRepository.findCleanupCandidates(ctx)
}
