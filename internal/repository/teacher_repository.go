package repository

import (
	"context"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/internal/query"
)

// TeacherRepository searches the teacher reference list.
type TeacherRepository struct {
	client *CollectionClient
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(client *CollectionClient) *TeacherRepository {
	return &TeacherRepository{client: client}
}

// Search returns teachers whose name matches search. Empty search lists everyone.
func (r *TeacherRepository) Search(ctx context.Context, search string, page, perPage int) (*models.Page[models.Teacher], error) {
	return FetchPage[models.Teacher](ctx, r.client, CollectionTeachers, query.Reference(search), page, perPage)
}
