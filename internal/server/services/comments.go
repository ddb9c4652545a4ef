package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/quillpost/internal/common"
	"github.com/dmitrijs2005/quillpost/internal/logging"
	"github.com/dmitrijs2005/quillpost/internal/server/auth"
	"github.com/dmitrijs2005/quillpost/internal/server/models"
	"github.com/dmitrijs2005/quillpost/internal/server/repositories/repomanager"
)

type CommentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewCommentService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *CommentService {
	return &CommentService{db: db, repomanager: m, logger: logger}
}

// Create adds a comment authored by the principal. The post must exist.
func (s *CommentService) Create(ctx context.Context, claims *auth.Claims, postID, content string) (*models.Comment, error) {
	if claims == nil {
		return nil, common.ErrorUnauthorized
	}
	if postID == "" || content == "" {
		return nil, common.ErrorValidation
	}

	if _, err := s.repomanager.Posts(s.db).GetByID(ctx, postID); err != nil {
		return nil, repoError(err)
	}

	comment, err := s.repomanager.Comments(s.db).Create(ctx, &models.Comment{
		PostID:   postID,
		AuthorID: claims.UserID,
		Content:  content,
	})
	if err != nil {
		s.logger.Error(ctx, "comment create failed", "error", err)
		return nil, repoError(err)
	}
	return comment, nil
}

func (s *CommentService) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	comments, err := s.repomanager.Comments(s.db).ListByPost(ctx, postID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return comments, nil
}

func (s *CommentService) ListByAuthor(ctx context.Context, loginID string) ([]*models.Comment, error) {
	comments, err := s.repomanager.Comments(s.db).ListByAuthorLogin(ctx, loginID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return comments, nil
}

func (s *CommentService) Update(ctx context.Context, claims *auth.Claims, id, content string) (*models.Comment, error) {
	repo := s.repomanager.Comments(s.db)

	comment, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err)
	}
	if err := auth.AuthorizeMutation(claims, comment.AuthorID); err != nil {
		return nil, err
	}
	if content == "" {
		return nil, common.ErrorValidation
	}

	if err := repo.Update(ctx, id, content); err != nil {
		return nil, repoError(err)
	}

	updated, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err)
	}
	return updated, nil
}

func (s *CommentService) Delete(ctx context.Context, claims *auth.Claims, id string) error {
	repo := s.repomanager.Comments(s.db)

	comment, err := repo.GetByID(ctx, id)
	if err != nil {
		return repoError(err)
	}
	if err := auth.AuthorizeMutation(claims, comment.AuthorID); err != nil {
		return err
	}

	return repoError(repo.Delete(ctx, id))
}
