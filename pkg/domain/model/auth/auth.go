package auth

import (
	"context"
	"slices"
	"strings"
)

// User is the caller identity taken from a verified upstream token
type User struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewUser creates a User
func NewUser(sub, email, name string) *User {
	return &User{Sub: sub, Email: email, Name: name}
}

// ID returns the identity sessions are owned by. Email is preferred, subject otherwise.
func (u *User) ID() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Sub
}

type ctxUserKey struct{}

// ContextWithUser stores the user in ctx
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, u)
}

// UserFromContext returns the user stored in ctx, or nil
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(ctxUserKey{}).(*User)
	return u
}

// AdminList grants admin capability to a fixed set of user IDs
type AdminList struct {
	ids []string
}

// NewAdminList creates an AdminList. IDs are compared case-insensitively.
func NewAdminList(ids ...string) *AdminList {
	normalized := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.ToLower(strings.TrimSpace(id)); id != "" {
			normalized = append(normalized, id)
		}
	}
	return &AdminList{ids: normalized}
}

// IsAdmin reports whether userID is an administrator
func (a *AdminList) IsAdmin(ctx context.Context, userID string) bool {
	if a == nil {
		return false
	}
	return slices.Contains(a.ids, strings.ToLower(userID))
}
