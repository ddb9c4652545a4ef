// Package posts provides PostgreSQL-backed storage for posts and their like sets.
package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/quillpost/internal/common"
	"github.com/dmitrijs2005/quillpost/internal/dbx"
	"github.com/dmitrijs2005/quillpost/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const foreignKeyViolation = "23503"

// fkError maps a foreign key violation to a domain error: a vanished post is
// common.ErrorNotFound, a vanished author or liker is common.ErrorUnauthorized.
func fkError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != foreignKeyViolation {
		return nil
	}
	if strings.HasSuffix(pgErr.ConstraintName, "post_id_fkey") {
		return common.ErrorNotFound
	}
	return common.ErrorUnauthorized
}

// PostgresRepository implements post storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// selectPosts yields the author login id, the like set in insertion order
// and the comment count alongside the post columns.
const selectPosts = `
	SELECT p.id, p.title, p.summary, p.content, COALESCE(p.cover, ''), p.author_id, u.login_id,
		COALESCE((SELECT string_agg(l.user_id::text, ',' ORDER BY l.created_at)
			FROM post_likes l WHERE l.post_id = p.id), ''),
		(SELECT count(*) FROM comments c WHERE c.post_id = p.id),
		p.created_at, p.updated_at
	FROM posts p
	JOIN users u ON u.id = p.author_id
	`

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*models.Post, error) {
	p := &models.Post{}
	var likes string
	err := row.Scan(&p.ID, &p.Title, &p.Summary, &p.Content, &p.Cover, &p.AuthorID, &p.Author,
		&likes, &p.CommentCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Likes = splitLikes(likes)
	return p, nil
}

func splitLikes(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Create inserts a post and fills in its id, timestamps and author login id.
func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	query := `
		WITH p AS (
			INSERT INTO posts (title, summary, content, cover, author_id)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5)
			RETURNING id, author_id, created_at, updated_at
		)
		SELECT p.id, u.login_id, p.created_at, p.updated_at
		FROM p JOIN users u ON u.id = p.author_id
		`

	err := r.db.QueryRowContext(ctx, query, post.Title, post.Summary, post.Content, post.Cover, post.AuthorID).
		Scan(&post.ID, &post.Author, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if fk := fkError(err); fk != nil {
			return nil, fk
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	post.Likes = []string{}
	return post, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, selectPosts+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// List returns posts newest first.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return r.query(ctx, selectPosts+` ORDER BY p.created_at DESC, p.id DESC LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListByAuthorLogin(ctx context.Context, loginID string) ([]*models.Post, error) {
	return r.query(ctx, selectPosts+` WHERE u.login_id = $1 ORDER BY p.created_at DESC, p.id DESC`, loginID)
}

func (r *PostgresRepository) ListLikedBy(ctx context.Context, loginID string) ([]*models.Post, error) {
	query := selectPosts + `
		WHERE p.id IN (
			SELECT l.post_id FROM post_likes l
			JOIN users lu ON lu.id = l.user_id
			WHERE lu.login_id = $1
		)
		ORDER BY p.created_at DESC, p.id DESC`
	return r.query(ctx, query, loginID)
}

// Update rewrites the mutable fields of a post.
func (r *PostgresRepository) Update(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts
		SET title = $2, summary = $3, content = $4, cover = NULLIF($5, ''), updated_at = now()
		WHERE id = $1
		`

	res, err := r.db.ExecContext(ctx, query, post.ID, post.Title, post.Summary, post.Content, post.Cover)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// ToggleLike removes userID from the like set of postID if present and adds
// it otherwise, in one statement.
func (r *PostgresRepository) ToggleLike(ctx context.Context, postID, userID string) error {
	query := `
		WITH removed AS (
			DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2
			RETURNING 1
		)
		INSERT INTO post_likes (post_id, user_id)
		SELECT $1::uuid, $2::uuid WHERE NOT EXISTS (SELECT 1 FROM removed)
		ON CONFLICT DO NOTHING
		`

	if _, err := r.db.ExecContext(ctx, query, postID, userID); err != nil {
		if fk := fkError(err); fk != nil {
			return fk
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// CoversByAuthor lists blob keys of covers attached to the author's posts.
func (r *PostgresRepository) CoversByAuthor(ctx context.Context, authorID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT cover FROM posts WHERE author_id = $1 AND cover IS NOT NULL`, authorID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return keys, nil
}

func (r *PostgresRepository) DeleteByAuthor(ctx context.Context, authorID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE author_id = $1`, authorID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveLikesByUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM post_likes WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
