package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/model/auth"
)

// Authenticator resolves the caller identity from a bearer token
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*auth.User, error)
	IsNoAuthn() bool
}

// JWTAuthenticator verifies tokens issued by the upstream identity provider
type JWTAuthenticator struct {
	keySet   jwk.Set
	issuer   string
	audience string
	skew     time.Duration
}

var _ Authenticator = &JWTAuthenticator{}

// JWTOption configures JWTAuthenticator
type JWTOption func(*JWTAuthenticator)

// WithIssuer requires the iss claim to match
func WithIssuer(issuer string) JWTOption {
	return func(a *JWTAuthenticator) {
		a.issuer = issuer
	}
}

// WithAudience requires the aud claim to contain audience
func WithAudience(audience string) JWTOption {
	return func(a *JWTAuthenticator) {
		a.audience = audience
	}
}

// NewJWTAuthenticator verifies tokens against keySet
func NewJWTAuthenticator(keySet jwk.Set, opts ...JWTOption) *JWTAuthenticator {
	a := &JWTAuthenticator{
		keySet: keySet,
		skew:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewJWKSAuthenticator fetches the key set from jwksURL and keeps it refreshed
func NewJWKSAuthenticator(ctx context.Context, jwksURL string, opts ...JWTOption) (*JWTAuthenticator, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, goerr.Wrap(err, "failed to register JWKS URL", goerr.V("jwks_url", jwksURL))
	}
	if _, err := cache.Refresh(ctx, jwksURL); err != nil {
		return nil, goerr.Wrap(err, "failed to fetch JWKS", goerr.V("jwks_url", jwksURL))
	}

	return NewJWTAuthenticator(jwk.NewCachedSet(cache, jwksURL), opts...), nil
}

func (a *JWTAuthenticator) Authenticate(ctx context.Context, bearer string) (*auth.User, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "bearer token is required")
	}

	parseOpts := []jwt.ParseOption{
		jwt.WithKeySet(a.keySet),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(a.skew),
	}
	if a.issuer != "" {
		parseOpts = append(parseOpts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		parseOpts = append(parseOpts, jwt.WithAudience(a.audience))
	}

	token, err := jwt.Parse([]byte(bearer), parseOpts...)
	if err != nil {
		return nil, goerr.Wrap(errors.Join(ErrUnauthenticated, err), "failed to verify token")
	}

	sub := token.Subject()
	if sub == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "sub claim not found in token")
	}

	return auth.NewUser(sub, stringClaim(token, "email"), stringClaim(token, "name")), nil
}

func (a *JWTAuthenticator) IsNoAuthn() bool {
	return false
}

func stringClaim(token jwt.Token, name string) string {
	v, ok := token.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
