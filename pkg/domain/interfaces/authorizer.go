package interfaces

import "context"

// Authorizer decides capabilities of a user
type Authorizer interface {
	IsAdmin(ctx context.Context, userID string) bool
}
