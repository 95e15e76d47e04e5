package event

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

func (r repository) find(ctx context.Context, id uint) (model.Event, error) {
	var event model.Event
	err := r.db.
		WithContext(ctx).
		Where("id = ?", id).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Event{}, errdef.NewNotFound("event with id %d doesn't exist", id)
	}

	if err != nil {
		return model.Event{}, fmt.Errorf("failed to find event: %v", err)
	}

	return event, nil
}

// findCleanupCandidates returns concluded events flagged for automatic
// cleanup.
func (r repository) findCleanupCandidates(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := r.db.
		WithContext(ctx).
		Where("status = ?", model.EventStatusConcluded).
		Where("auto_cleanup_on_event_end = ?", true).
		Order("id").
		Find(&events).Error
	return events, err
}
