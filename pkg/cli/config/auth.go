package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/domain/model/auth"
	"github.com/secmon-lab/cogsmith/pkg/usecase"
	"github.com/secmon-lab/cogsmith/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Auth configures bearer token verification and admin capability
type Auth struct {
	jwksURL  string
	issuer   string
	audience string
	noAuth   string
	admins   []string
}

func (a *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "jwks-url",
			Usage:       "JWKS endpoint of the upstream identity provider",
			Category:    "Authentication",
			Sources:     cli.EnvVars("COGSMITH_JWKS_URL"),
			Destination: &a.jwksURL,
		},
		&cli.StringFlag{
			Name:        "jwt-issuer",
			Usage:       "Expected token issuer (iss)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("COGSMITH_JWT_ISSUER"),
			Destination: &a.issuer,
		},
		&cli.StringFlag{
			Name:        "jwt-audience",
			Usage:       "Expected token audience (aud)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("COGSMITH_JWT_AUDIENCE"),
			Destination: &a.audience,
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Usage:       "Skip authentication and run as the given user email (development only)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("COGSMITH_NO_AUTH"),
			Destination: &a.noAuth,
		},
		&cli.StringSliceFlag{
			Name:        "admin",
			Usage:       "User ID (email or subject) allowed to inspect other users' sessions",
			Category:    "Authentication",
			Sources:     cli.EnvVars("COGSMITH_ADMINS"),
			Destination: &a.admins,
		},
	}
}

func (a Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("jwks_url", a.jwksURL),
		slog.String("issuer", a.issuer),
		slog.String("audience", a.audience),
		slog.String("no_auth", a.noAuth),
		slog.Int("admins", len(a.admins)),
	)
}

// IsNoAuthMode reports whether authentication is skipped
func (a *Auth) IsNoAuthMode() bool {
	return a.noAuth != ""
}

// Authorizer returns the admin list built from --admin
func (a *Auth) Authorizer() *auth.AdminList {
	return auth.NewAdminList(a.admins...)
}

// Configure returns the authenticator. No-auth mode takes precedence over JWKS.
func (a *Auth) Configure(ctx context.Context) (usecase.Authenticator, error) {
	if a.noAuth != "" {
		logging.Default().Warn("Running in no-auth mode (development only)", "user", a.noAuth)
		return usecase.NewNoAuthnUseCase(a.noAuth, a.noAuth, a.noAuth), nil
	}

	if a.jwksURL == "" {
		return nil, goerr.Wrap(ErrMissingParameter, "jwks-url or no-auth is required",
			goerr.V(ParameterKey, "jwks-url"))
	}

	var opts []usecase.JWTOption
	if a.issuer != "" {
		opts = append(opts, usecase.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, usecase.WithAudience(a.audience))
	}

	authn, err := usecase.NewJWKSAuthenticator(ctx, a.jwksURL, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure JWT authentication", goerr.V("jwks_url", a.jwksURL))
	}
	logging.Default().Info("JWT authentication enabled", "jwks_url", a.jwksURL)
	return authn, nil
}
