package comments

import (
	"context"

	"github.com/dmitrijs2005/quillpost/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, comment *models.Comment) (*models.Comment, error)
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]*models.Comment, error)
	ListByAuthorLogin(ctx context.Context, loginID string) ([]*models.Comment, error)
	Update(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
	DeleteByAuthor(ctx context.Context, authorID string) error
}
