package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/websecurity/security"
)

const (
	// AuthHeaderName is the header carrying the token
	AuthHeaderName = "Authorization"

	// AuthScheme prefixes the token in AuthHeaderName
	AuthScheme = "Bearer "

	// DefaultAlgorithm is the signing algorithm accepted when none is configured
	DefaultAlgorithm = "HS256"

	// DefaultIdentityClaim is the claim read as the identity
	DefaultIdentityClaim = "login"
)

// Messages of the malformed credential errors returned by JWTPolicy.Identify
const (
	MsgInvalidScheme   = "Invalid authorization scheme. Should be `Bearer <token>`"
	MsgExpiredToken    = "Signature has expired"
	MsgInvalidToken    = "Invalid token"
	MsgMissingIdentity = "Token carries no identity claim"
)

var (
	// ErrMissingSecret is returned when the policy is built without a secret
	ErrMissingSecret = errors.New("jwt secret is required")

	// ErrUnsupportedAlgorithm is returned for non-HMAC algorithms
	ErrUnsupportedAlgorithm = errors.New("unsupported jwt algorithm")
)

// JWTPolicy identifies requests by a bearer token. Tokens are issued
// elsewhere, so Remember and Forget do nothing.
type JWTPolicy struct {
	secret []byte
	method jwt.SigningMethod
	claim  string
	parser *jwt.Parser
}

// JWTConfig holds configuration for JWTPolicy
type JWTConfig struct {
	Secret        string
	Algorithm     string // HS256, HS384 or HS512
	IdentityClaim string
}

// NewJWTPolicy creates a JWT identity policy
func NewJWTPolicy(cfg JWTConfig) (*JWTPolicy, error) {
	method, err := SigningMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.IdentityClaim == "" {
		cfg.IdentityClaim = DefaultIdentityClaim
	}

	return &JWTPolicy{
		secret: []byte(cfg.Secret),
		method: method,
		claim:  cfg.IdentityClaim,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{method.Alg()})),
	}, nil
}

// SigningMethod resolves an HMAC algorithm name. Empty selects DefaultAlgorithm.
func SigningMethod(alg string) (*jwt.SigningMethodHMAC, error) {
	if alg == "" {
		alg = DefaultAlgorithm
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}
	return method, nil
}

// Identify verifies the bearer token and returns its identity claim.
// A request without the header is anonymous.
func (p *JWTPolicy) Identify(r *http.Request) (security.Identity, error) {
	values := r.Header.Values(AuthHeaderName)
	if len(values) == 0 {
		return security.Anonymous, nil
	}

	header := values[0]
	if !strings.HasPrefix(header, AuthScheme) {
		return security.Anonymous, security.MalformedCredential(MsgInvalidScheme, nil)
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(header, AuthScheme))

	claims := jwt.MapClaims{}
	_, err := p.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return security.Anonymous, security.MalformedCredential(MsgExpiredToken, err)
		}
		return security.Anonymous, security.MalformedCredential(MsgInvalidToken, err)
	}

	value, ok := claims[p.claim].(string)
	if !ok || value == "" {
		return security.Anonymous, security.MalformedCredential(MsgMissingIdentity, nil)
	}
	return security.NewIdentity(value)
}

// Remember is a no-op; the client already holds the token.
func (p *JWTPolicy) Remember(w http.ResponseWriter, r *http.Request, identity security.Identity, opts ...security.RememberOption) error {
	return nil
}

// Forget is a no-op; tokens expire on their own.
func (p *JWTPolicy) Forget(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// Method returns the signing method tokens must use
func (p *JWTPolicy) Method() jwt.SigningMethod {
	return p.method
}

// Claim returns the name of the identity claim
func (p *JWTPolicy) Claim() string {
	return p.claim
}
