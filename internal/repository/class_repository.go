package repository

import (
	"context"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/internal/query"
)

// ClassRepository searches the class reference list.
type ClassRepository struct {
	client *CollectionClient
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(client *CollectionClient) *ClassRepository {
	return &ClassRepository{client: client}
}

// Search returns classes matching the search, optionally narrowed by grade and academic year.
func (r *ClassRepository) Search(ctx context.Context, search models.ClassSearch, page, perPage int) (*models.Page[models.Class], error) {
	return FetchPage[models.Class](ctx, r.client, CollectionClasses, query.ClassSearch(search), page, perPage)
}
