package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/quillpost/internal/common"
	"github.com/dmitrijs2005/quillpost/internal/dbx"
	"github.com/dmitrijs2005/quillpost/internal/logging"
	"github.com/dmitrijs2005/quillpost/internal/server/auth"
	"github.com/dmitrijs2005/quillpost/internal/server/blobstore"
	"github.com/dmitrijs2005/quillpost/internal/server/config"
	"github.com/dmitrijs2005/quillpost/internal/server/models"
	"github.com/dmitrijs2005/quillpost/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// ErrCascadeIncomplete marks an account deletion that was rolled back.
// Retrying is safe.
var ErrCascadeIncomplete = errors.New("account deletion incomplete")

const externalLoginPrefix = "kakao_"

// Session is a freshly minted session token with its claims.
type Session struct {
	Token  string
	Claims *auth.Claims
}

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *auth.Codec
	blobs       blobstore.Store
	logger      logging.Logger
	bcryptCost  int
	dummyHash   []byte
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, codec *auth.Codec, blobs blobstore.Store,
	cfg *config.Config, logger logging.Logger) *UserService {

	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		if cost != 0 {
			logger.Warn(context.Background(), "bcrypt cost out of range, using default",
				"configured", cost, "default", bcrypt.DefaultCost)
		}
		cost = bcrypt.DefaultCost
	}

	// compared against when the login id is unknown, so both paths pay for bcrypt
	dummy, err := bcrypt.GenerateFromPassword([]byte("quillpost-dummy-password"), cost)
	if err != nil {
		// the cost is in range, so only the entropy source can fail here
		panic(fmt.Sprintf("bcrypt dummy hash: %v", err))
	}

	return &UserService{
		db:          db,
		repomanager: m,
		codec:       codec,
		blobs:       blobs,
		logger:      logger,
		bcryptCost:  cost,
		dummyHash:   dummy,
	}
}

func (s *UserService) hashPassword(password string) ([]byte, error) {
	if password == "" {
		return nil, common.ErrorValidation
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password too long", common.ErrorValidation)
		}
		return nil, common.ErrorInternal
	}
	return hash, nil
}

// SignUp registers a new credential. It does not open a session.
func (s *UserService) SignUp(ctx context.Context, loginID, password string) (*models.User, error) {
	if loginID == "" || password == "" {
		return nil, common.ErrorValidation
	}
	// ids under the external prefix belong to LoginExternal
	if strings.HasPrefix(loginID, externalLoginPrefix) {
		return nil, fmt.Errorf("%w: reserved login id", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByLoginID(ctx, loginID)
	if err == nil {
		return nil, common.ErrorConflict
	}
	if !errors.Is(err, common.ErrorNotFound) {
		s.logger.Error(ctx, "signup lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := repo.Create(ctx, &models.User{LoginID: loginID, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		s.logger.Error(ctx, "signup create failed", "error", err)
		return nil, common.ErrorInternal
	}

	return user, nil
}

// Login checks the password and mints a session. Unknown login ids and wrong
// passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, loginID, password string) (*Session, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByLoginID(ctx, loginID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "login lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	if len(user.PasswordHash) == 0 {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, common.ErrorUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, common.ErrorUnauthorized
	}

	return s.issue(user)
}

func (s *UserService) issue(user *models.User) (*Session, error) {
	token, claims, err := s.codec.Issue(user.ID, user.LoginID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &Session{Token: token, Claims: claims}, nil
}

// Profile returns the claims of a verified session while its account still
// exists. No session and a deleted account are both ErrorUnauthorized.
func (s *UserService) Profile(ctx context.Context, claims *auth.Claims) (*auth.Claims, error) {
	if claims == nil || claims.UserID == "" {
		return nil, common.ErrorUnauthorized
	}
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "profile lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	return claims, nil
}

// LoginExternal finds or creates the credential bound to an external
// identity and mints a session for it.
func (s *UserService) LoginExternal(ctx context.Context, externalID string) (*Session, error) {
	if externalID == "" {
		return nil, common.ErrorUnauthorized
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByExternalID(ctx, externalID)
	if errors.Is(err, common.ErrorNotFound) {
		user, err = repo.Create(ctx, &models.User{
			LoginID:    externalLoginPrefix + externalID,
			ExternalID: &externalID,
		})
		if errors.Is(err, common.ErrorConflict) {
			// created concurrently
			user, err = repo.GetByExternalID(ctx, externalID)
			if errors.Is(err, common.ErrorNotFound) {
				s.logger.Error(ctx, "external login id held by a password account", "external_id", externalID)
				return nil, common.ErrorConflict
			}
		}
	}
	if err != nil {
		s.logger.Error(ctx, "external login failed", "error", err)
		return nil, common.ErrorInternal
	}

	return s.issue(user)
}

// GetUser returns the public record of a login id.
func (s *UserService) GetUser(ctx context.Context, loginID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByLoginID(ctx, loginID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, claims *auth.Claims, password string) (*models.User, error) {
	if claims == nil {
		return nil, common.ErrorUnauthorized
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.UpdatePasswordHash(ctx, claims.UserID, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "password update failed", "error", err)
		return nil, common.ErrorInternal
	}

	return s.GetUser(ctx, claims.LoginID)
}

// DeleteAccount removes the principal's comments, posts, like memberships
// and credential in one transaction. Cover blobs go after commit.
func (s *UserService) DeleteAccount(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return common.ErrorUnauthorized
	}
	userID := claims.UserID

	covers, err := s.repomanager.Posts(s.db).CoversByAuthor(ctx, userID)
	if err != nil {
		s.logger.Error(ctx, "account deletion: listing covers failed", "user_id", userID, "error", err)
		return fmt.Errorf("%w: %w", common.ErrorInternal, ErrCascadeIncomplete)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Comments(tx).DeleteByAuthor(ctx, userID); err != nil {
			return err
		}
		posts := s.repomanager.Posts(tx)
		if err := posts.RemoveLikesByUser(ctx, userID); err != nil {
			return err
		}
		if err := posts.DeleteByAuthor(ctx, userID); err != nil {
			return err
		}
		return s.repomanager.Users(tx).Delete(ctx, userID)
	})
	if err != nil {
		s.logger.Error(ctx, "account deletion rolled back", "user_id", userID, "error", err)
		return fmt.Errorf("%w: %w", common.ErrorInternal, ErrCascadeIncomplete)
	}

	for _, key := range covers {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn(ctx, "orphaned cover blob", "key", key, "error", err)
		}
	}

	s.logger.Info(ctx, "account deleted", "user_id", userID)
	return nil
}
