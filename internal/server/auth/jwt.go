// Package auth issues and verifies signed session tokens and decides whether
// a principal may mutate a resource.
package auth

import (
	"context"
	"time"

	"github.com/dmitrijs2005/quillpost/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the verified identity carried by a session token. UserID is the
// internal id (sub), LoginID the login handle.
type Claims struct {
	jwt.RegisteredClaims
	UserID  string `json:"-"`
	LoginID string `json:"loginId"`
}

// Codec signs and verifies HS256 session tokens with a shared secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(secret []byte, ttl time.Duration) *Codec {
	return &Codec{secret: secret, ttl: ttl, now: time.Now}
}

// TTL reports how long issued tokens stay valid.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue mints a token valid for the codec TTL.
func (c *Codec) Issue(userID, loginID string) (string, *Claims, error) {
	now := c.now().Truncate(time.Second)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		UserID:  userID,
		LoginID: loginID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", nil, err
	}

	return tokenString, claims, nil
}

// Verify checks signature and expiry. Any failure is reported as
// common.ErrInvalidToken.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	claims.UserID = claims.Subject

	return claims, nil
}

type claimsKey struct{}

// WithClaims stores verified claims in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by WithClaims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}
