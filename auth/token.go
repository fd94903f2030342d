package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/websecurity/identity"
)

// TokenIssuer signs the bearer tokens accepted by identity.JWTPolicy
type TokenIssuer struct {
	secret []byte
	method jwt.SigningMethod
	claim  string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer for cfg. A zero ttl issues tokens without expiry.
func NewTokenIssuer(cfg identity.JWTConfig, ttl time.Duration) (*TokenIssuer, error) {
	method, err := identity.SigningMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if cfg.Secret == "" {
		return nil, identity.ErrMissingSecret
	}
	claim := cfg.IdentityClaim
	if claim == "" {
		claim = identity.DefaultIdentityClaim
	}

	return &TokenIssuer{
		secret: []byte(cfg.Secret),
		method: method,
		claim:  claim,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue returns a signed token carrying login as the identity claim
func (i *TokenIssuer) Issue(login string) (string, error) {
	if login == "" {
		return "", errors.New("login is required")
	}

	now := i.now()
	claims := jwt.MapClaims{
		i.claim: login,
		"iat":   now.Unix(),
	}
	if i.ttl > 0 {
		claims["exp"] = now.Add(i.ttl).Unix()
	}

	return jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
}
