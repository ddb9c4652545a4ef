package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"math"

	"github.com/dmitrijs2005/quillpost/internal/common"
	"github.com/dmitrijs2005/quillpost/internal/logging"
	"github.com/dmitrijs2005/quillpost/internal/server/auth"
	"github.com/dmitrijs2005/quillpost/internal/server/blobstore"
	"github.com/dmitrijs2005/quillpost/internal/server/models"
	"github.com/dmitrijs2005/quillpost/internal/server/repositories/repomanager"
)

const (
	DefaultPageLimit = 3
	MaxPageLimit     = 100
)

// PostInput carries the editable fields of a post.
type PostInput struct {
	Title   string
	Summary string
	Content string
}

// CoverUpload is an image attached to a create or update request.
type CoverUpload struct {
	Body        io.Reader
	Size        int64
	ContentType string
	Ext         string
}

type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Store
	logger      logging.Logger
}

func NewPostService(db *sql.DB, m repomanager.RepositoryManager, blobs blobstore.Store, logger logging.Logger) *PostService {
	return &PostService{db: db, repomanager: m, blobs: blobs, logger: logger}
}

func (s *PostService) withCoverURL(ctx context.Context, posts ...*models.Post) {
	for _, p := range posts {
		if p.Cover == "" {
			continue
		}
		url, err := s.blobs.URL(ctx, p.Cover)
		if err != nil {
			s.logger.Warn(ctx, "cover presign failed", "key", p.Cover, "error", err)
			continue
		}
		p.CoverURL = url
	}
}

func (s *PostService) saveCover(ctx context.Context, cover *CoverUpload) (string, error) {
	if cover == nil {
		return "", nil
	}
	key, err := s.blobs.Save(ctx, cover.Body, cover.Size, cover.ContentType, cover.Ext)
	if err != nil {
		s.logger.Error(ctx, "cover upload failed", "error", err)
		return "", common.ErrorInternal
	}
	return key, nil
}

func (s *PostService) dropBlob(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn(ctx, "orphaned cover blob", "key", key, "error", err)
	}
}

// repoError keeps ErrorNotFound and ErrorUnauthorized and hides everything
// else behind ErrorInternal.
func repoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	if errors.Is(err, common.ErrorUnauthorized) {
		return common.ErrorUnauthorized
	}
	return common.ErrorInternal
}

func (s *PostService) Create(ctx context.Context, claims *auth.Claims, in PostInput, cover *CoverUpload) (*models.Post, error) {
	if claims == nil {
		return nil, common.ErrorUnauthorized
	}
	if in.Title == "" || in.Content == "" {
		return nil, common.ErrorValidation
	}

	key, err := s.saveCover(ctx, cover)
	if err != nil {
		return nil, err
	}

	post, err := s.repomanager.Posts(s.db).Create(ctx, &models.Post{
		Title:    in.Title,
		Summary:  in.Summary,
		Content:  in.Content,
		Cover:    key,
		AuthorID: claims.UserID,
	})
	if err != nil {
		s.dropBlob(ctx, key)
		s.logger.Error(ctx, "post create failed", "error", err)
		return nil, repoError(err)
	}

	s.withCoverURL(ctx, post)
	return post, nil
}

// List returns one page of posts, newest first. Pages are numbered from zero.
func (s *PostService) List(ctx context.Context, page, limit int) (*models.PostPage, error) {
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	repo := s.repomanager.Posts(s.db)

	total, err := repo.Count(ctx)
	if err != nil {
		return nil, common.ErrorInternal
	}

	// page*limit would overflow; no table is that large
	if page > (math.MaxInt-limit)/limit {
		return &models.PostPage{Posts: []*models.Post{}, Total: total}, nil
	}
	skip := page * limit

	posts, err := repo.List(ctx, limit, skip)
	if err != nil {
		return nil, common.ErrorInternal
	}

	s.withCoverURL(ctx, posts...)
	return &models.PostPage{
		Posts:   posts,
		Total:   total,
		HasMore: total > skip+len(posts),
	}, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.repomanager.Posts(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err)
	}
	s.withCoverURL(ctx, post)
	return post, nil
}

// Update edits an owned post. Empty fields keep their value; a new cover
// replaces the old blob.
func (s *PostService) Update(ctx context.Context, claims *auth.Claims, id string, in PostInput, cover *CoverUpload) (*models.Post, error) {
	repo := s.repomanager.Posts(s.db)

	post, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err)
	}
	if err := auth.AuthorizeMutation(claims, post.AuthorID); err != nil {
		return nil, err
	}

	if in.Title != "" {
		post.Title = in.Title
	}
	if in.Summary != "" {
		post.Summary = in.Summary
	}
	if in.Content != "" {
		post.Content = in.Content
	}

	oldCover := post.Cover
	newCover, err := s.saveCover(ctx, cover)
	if err != nil {
		return nil, err
	}
	if newCover != "" {
		post.Cover = newCover
	}

	if err := repo.Update(ctx, post); err != nil {
		s.dropBlob(ctx, newCover)
		return nil, repoError(err)
	}

	if newCover != "" {
		s.dropBlob(ctx, oldCover)
	}

	return s.Get(ctx, id)
}

func (s *PostService) Delete(ctx context.Context, claims *auth.Claims, id string) error {
	repo := s.repomanager.Posts(s.db)

	post, err := repo.GetByID(ctx, id)
	if err != nil {
		return repoError(err)
	}
	if err := auth.AuthorizeMutation(claims, post.AuthorID); err != nil {
		return err
	}

	if err := repo.Delete(ctx, id); err != nil {
		return repoError(err)
	}

	s.dropBlob(ctx, post.Cover)
	return nil
}

// ToggleLike flips the principal's membership in the post's like set. Any
// authenticated user may like any post.
func (s *PostService) ToggleLike(ctx context.Context, claims *auth.Claims, id string) (*models.Post, error) {
	if claims == nil {
		return nil, common.ErrorUnauthorized
	}

	repo := s.repomanager.Posts(s.db)

	if _, err := repo.GetByID(ctx, id); err != nil {
		return nil, repoError(err)
	}

	if err := repo.ToggleLike(ctx, id, claims.UserID); err != nil {
		s.logger.Error(ctx, "like toggle failed", "post_id", id, "error", err)
		return nil, repoError(err)
	}

	return s.Get(ctx, id)
}

func (s *PostService) ListByAuthor(ctx context.Context, loginID string) ([]*models.Post, error) {
	posts, err := s.repomanager.Posts(s.db).ListByAuthorLogin(ctx, loginID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	s.withCoverURL(ctx, posts...)
	return posts, nil
}

// ListLikedBy returns posts liked by loginID; NotFound when the user is unknown.
func (s *PostService) ListLikedBy(ctx context.Context, loginID string) ([]*models.Post, error) {
	if _, err := s.repomanager.Users(s.db).GetByLoginID(ctx, loginID); err != nil {
		return nil, repoError(err)
	}

	posts, err := s.repomanager.Posts(s.db).ListLikedBy(ctx, loginID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	s.withCoverURL(ctx, posts...)
	return posts, nil
}
