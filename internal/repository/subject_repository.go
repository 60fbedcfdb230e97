package repository

import (
	"context"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/internal/query"
)

// SubjectRepository searches the subject reference list.
type SubjectRepository struct {
	client *CollectionClient
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(client *CollectionClient) *SubjectRepository {
	return &SubjectRepository{client: client}
}

// Search returns subjects matching search.
func (r *SubjectRepository) Search(ctx context.Context, search string, page, perPage int) (*models.Page[models.Subject], error) {
	return FetchPage[models.Subject](ctx, r.client, CollectionSubjects, query.Reference(search), page, perPage)
}
