package team

import (
	"context"

	"github.com/hackday-sre/cluster-manager/pkg/model"
)

func NewService(teamRepository *repository) Service {
	return Service{teamRepository}
}

type Service struct {
	teamRepository *repository
}

func (s Service) Find(ctx context.Context, id uint) (model.Team, error) {
	return s.teamRepository.find(ctx, id)
}
