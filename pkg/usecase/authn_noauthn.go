package usecase

import (
	"context"

	"github.com/secmon-lab/cogsmith/pkg/domain/model/auth"
)

// NoAuthnUseCase authenticates every request as a fixed user (for development/testing)
type NoAuthnUseCase struct {
	user *auth.User
}

var _ Authenticator = &NoAuthnUseCase{}

// NewNoAuthnUseCase creates a new NoAuthnUseCase instance with specified user info
func NewNoAuthnUseCase(sub, email, name string) *NoAuthnUseCase {
	return &NoAuthnUseCase{user: auth.NewUser(sub, email, name)}
}

// Authenticate ignores the token and returns the configured user
func (uc *NoAuthnUseCase) Authenticate(ctx context.Context, bearer string) (*auth.User, error) {
	u := *uc.user
	return &u, nil
}

// IsNoAuthn returns true for NoAuthnUseCase
func (uc *NoAuthnUseCase) IsNoAuthn() bool {
	return true
}
