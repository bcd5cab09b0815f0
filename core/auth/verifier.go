package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failure reasons. All of them mean "unauthenticated"; the HTTP
// layer maps them to 401 with the reason string as detail.
var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrKeyNotFound   = errors.New("signing key not found")
	ErrBadSignature  = errors.New("invalid token signature")
	ErrInvalidToken  = errors.New("invalid token")
	ErrBadAudience   = errors.New("invalid audience")
	ErrTokenExpired  = errors.New("token expired")
	ErrMissingClaims = errors.New("missing subject")
)

// Claims carried by the identity provider's access tokens.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type (
	// KeySource yields the current signing-key set; *KeyCache in production,
	// a fake in tests.
	KeySource interface {
		Get(ctx context.Context) ([]JWK, error)
	}

	Verifier struct {
		keys     KeySource
		audience string

		NowFunc func() time.Time // mockable
	}
)

func NewVerifier(keys KeySource, audience string) *Verifier {
	return &Verifier{keys: keys, audience: audience, NowFunc: time.Now}
}

// Verify checks the token signature against the published key set, then the
// audience and expiry claims. Checks happen in that order: an unknown key id
// is reported before any claim problem.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := new(Claims)
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		keys, err := v.keys.Get(ctx)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			if key.Kid == kid {
				return key.PublicKey()
			}
		}
		return nil, ErrKeyNotFound
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrKeyNotFound):
			return nil, ErrKeyNotFound
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		}
		return nil, ErrInvalidToken
	}

	if !v.audienceMatches(claims.Audience) {
		return nil, ErrBadAudience
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Before(v.NowFunc()) {
		return nil, ErrTokenExpired
	}
	if claims.Subject == "" {
		return nil, ErrMissingClaims
	}
	return claims, nil
}

func (v *Verifier) audienceMatches(aud jwt.ClaimStrings) bool {
	for _, a := range aud {
		if a == v.audience {
			return true
		}
	}
	return false
}
