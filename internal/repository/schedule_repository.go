package repository

import (
	"context"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/internal/query"
)

// ScheduleRepository reads the schedule collection.
type ScheduleRepository struct {
	client *CollectionClient
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(client *CollectionClient) *ScheduleRepository {
	return &ScheduleRepository{client: client}
}

// List returns one page of schedule rows for the query.
func (r *ScheduleRepository) List(ctx context.Context, q query.Query, page, perPage int) (*models.Page[models.ScheduleRow], error) {
	return FetchPage[models.ScheduleRow](ctx, r.client, CollectionSchedules, q, page, perPage)
}
