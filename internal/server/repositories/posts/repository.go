package posts

import (
	"context"

	"github.com/dmitrijs2005/quillpost/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	Count(ctx context.Context) (int, error)
	ListByAuthorLogin(ctx context.Context, loginID string) ([]*models.Post, error)
	ListLikedBy(ctx context.Context, loginID string) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, postID, userID string) error
	CoversByAuthor(ctx context.Context, authorID string) ([]string, error)
	DeleteByAuthor(ctx context.Context, authorID string) error
	RemoveLikesByUser(ctx context.Context, userID string) error
}
