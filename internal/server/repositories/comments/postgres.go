// Package comments provides PostgreSQL-backed comment storage.
package comments

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
// common.ErrorNotFound, a vanished author is common.ErrorUnauthorized.
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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectComments = `
	SELECT c.id, c.post_id, c.content, c.author_id, u.login_id, c.created_at, c.updated_at
	FROM comments c
	JOIN users u ON u.id = c.author_id
	`

type scanner interface {
	Scan(dest ...any) error
}

func scanComment(row scanner) (*models.Comment, error) {
	c := &models.Comment{}
	err := row.Scan(&c.ID, &c.PostID, &c.Content, &c.AuthorID, &c.Author, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	query := `
		WITH c AS (
			INSERT INTO comments (post_id, author_id, content)
			VALUES ($1, $2, $3)
			RETURNING id, author_id, created_at, updated_at
		)
		SELECT c.id, u.login_id, c.created_at, c.updated_at
		FROM c JOIN users u ON u.id = c.author_id
		`

	err := r.db.QueryRowContext(ctx, query, comment.PostID, comment.AuthorID, comment.Content).
		Scan(&comment.ID, &comment.Author, &comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		if fk := fkError(err); fk != nil {
			return nil, fk
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return comment, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, selectComments+` WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// ListByPost returns the comments of a post, newest first.
func (r *PostgresRepository) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	return r.query(ctx, selectComments+` WHERE c.post_id = $1 ORDER BY c.created_at DESC, c.id DESC`, postID)
}

func (r *PostgresRepository) ListByAuthorLogin(ctx context.Context, loginID string) ([]*models.Comment, error) {
	return r.query(ctx, selectComments+` WHERE u.login_id = $1 ORDER BY c.created_at DESC, c.id DESC`, loginID)
}

func (r *PostgresRepository) Update(ctx context.Context, id, content string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE comments SET content = $2, updated_at = now() WHERE id = $1`, id, content)
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
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

// DeleteByAuthor removes every comment written by authorID.
func (r *PostgresRepository) DeleteByAuthor(ctx context.Context, authorID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE author_id = $1`, authorID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
