package auth_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/cogsmith/pkg/domain/model/auth"
)

func TestUserID(t *testing.T) {
	gt.Value(t, auth.NewUser("U1", "a@example.com", "A").ID()).Equal("a@example.com")
	gt.Value(t, auth.NewUser("U1", "", "A").ID()).Equal("U1")
}

func TestUserContext(t *testing.T) {
	ctx := t.Context()
	gt.Value(t, auth.UserFromContext(ctx)).Nil()

	u := auth.NewUser("U1", "a@example.com", "A")
	ctx = auth.ContextWithUser(ctx, u)
	gt.Value(t, auth.UserFromContext(ctx)).Equal(u)
}

func TestAdminList(t *testing.T) {
	admins := auth.NewAdminList(" Admin@Example.com ", "")
	ctx := context.Background()

	gt.Bool(t, admins.IsAdmin(ctx, "admin@example.com")).True()
	gt.Bool(t, admins.IsAdmin(ctx, "ADMIN@example.com")).True()
	gt.Bool(t, admins.IsAdmin(ctx, "user@example.com")).False()
	gt.Bool(t, admins.IsAdmin(ctx, "")).False()

	var none *auth.AdminList
	gt.Bool(t, none.IsAdmin(ctx, "admin@example.com")).False()
}
