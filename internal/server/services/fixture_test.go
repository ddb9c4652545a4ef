package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/quillpost/internal/logging"
	"github.com/dmitrijs2005/quillpost/internal/server/auth"
	"github.com/dmitrijs2005/quillpost/internal/server/config"
	"github.com/dmitrijs2005/quillpost/internal/server/repositories/repotest"
	"golang.org/x/crypto/bcrypt"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type fixture struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	store    *repotest.Store
	blobs    *repotest.Blobs
	codec    *auth.Codec
	users    *UserService
	posts    *PostService
	comments *CommentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock := newSQLMockDB(t)
	store := repotest.NewStore()
	rm := repotest.NewManager(store)
	blobs := repotest.NewBlobs()
	codec := auth.NewCodec([]byte("k"), time.Hour)
	cfg := &config.Config{BcryptCost: bcrypt.MinCost}
	log := logging.Nop{}

	return &fixture{
		db:       db,
		mock:     mock,
		store:    store,
		blobs:    blobs,
		codec:    codec,
		users:    NewUserService(db, rm, codec, blobs, cfg, log),
		posts:    NewPostService(db, rm, blobs, log),
		comments: NewCommentService(db, rm, log),
	}
}

// signUpAndLogin registers loginID and returns its session claims.
func (f *fixture) signUpAndLogin(t *testing.T, loginID string) *auth.Claims {
	t.Helper()
	ctx := context.Background()
	if _, err := f.users.SignUp(ctx, loginID, "pw-"+loginID); err != nil {
		t.Fatalf("SignUp(%s) error: %v", loginID, err)
	}
	sess, err := f.users.Login(ctx, loginID, "pw-"+loginID)
	if err != nil {
		t.Fatalf("Login(%s) error: %v", loginID, err)
	}
	return sess.Claims
}
