package users

import (
	"context"

	"github.com/dmitrijs2005/quillpost/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByLoginID(ctx context.Context, loginID string) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id string, hash []byte) error
	Delete(ctx context.Context, id string) error
}
