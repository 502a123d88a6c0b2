// Package tokenverify performs the independent credential-verification step
// that produces response metadata. The decision core never parses the bearer
// credential itself; this collaborator is the only place its contents are
// inspected.
package tokenverify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevokedToken = errors.New("token has been revoked")
)

// Meta is the metadata attached to responses after a successful verification.
type Meta struct {
	Subject   string    `json:"subject"`
	Email     string    `json:"email,omitempty"`
	IssuedAt  time.Time `json:"issued_at,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type Verifier interface {
	Verify(ctx context.Context, credential string) (*Meta, error)
}

type tokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type verifier struct {
	secret []byte
	issuer string
	store  RevocationStore
}

// NewVerifier builds a Verifier for HS256 access tokens. store may be nil, in
// which case revocation is not consulted.
func NewVerifier(secret, issuer string, store RevocationStore) Verifier {
	return &verifier{
		secret: []byte(secret),
		issuer: issuer,
		store:  store,
	}
}

func (v *verifier) Verify(ctx context.Context, credential string) (*Meta, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(credential), "Bearer "))
	if raw == "" {
		return nil, ErrInvalidToken
	}

	var claims tokenClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}

	if v.store != nil && claims.ID != "" {
		revoked, err := v.store.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("revocation lookup failed: %w", err)
		}
		if revoked {
			return nil, ErrRevokedToken
		}
	}

	meta := &Meta{
		Subject: claims.Subject,
		Email:   claims.Email,
	}
	if claims.IssuedAt != nil {
		meta.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		meta.ExpiresAt = claims.ExpiresAt.Time
	}

	return meta, nil
}
