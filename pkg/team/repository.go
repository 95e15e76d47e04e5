package team

import (
	"context"
	"errors"
	"fmt"

	"github.com/hackday-sre/cluster-manager/internal/errdef"
	"github.com/hackday-sre/cluster-manager/pkg/model"
	"gorm.io/gorm"
)

//goland:noinspection GoExportedFuncWithUnexportedType
func NewRepository(db *gorm.DB) *repository {
	return &repository{db}
}

type repository struct {
	db *gorm.DB
}

func (r repository) find(ctx context.Context, id uint) (model.Team, error) {
	var team model.Team
	err := r.db.
		WithContext(ctx).
		Where("id = ?", id).
		First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Team{}, errdef.NewNotFound("team with id %d doesn't exist", id)
	}

	if err != nil {
		return model.Team{}, fmt.Errorf("failed to find team: %v", err)
	}

	return team, nil
}
