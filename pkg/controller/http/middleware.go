package http

import (
	"net/http"
	"strings"

	"github.com/secmon-lab/cogsmith/pkg/domain/model/auth"
	"github.com/secmon-lab/cogsmith/pkg/usecase"
	"github.com/secmon-lab/cogsmith/pkg/utils/logging"
)

// authMiddleware resolves the caller from the Authorization bearer token
func authMiddleware(authn usecase.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if authn == nil {
				writeError(ctx, w, usecase.ErrUnauthenticated)
				return
			}

			var bearer string
			if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
				bearer = strings.TrimSpace(h[7:])
			}

			if bearer == "" && !authn.IsNoAuthn() {
				writeError(ctx, w, usecase.ErrUnauthenticated)
				return
			}

			user, err := authn.Authenticate(ctx, bearer)
			if err != nil {
				logging.From(ctx).Warn("authentication failed", "error", err.Error(), "remote", r.RemoteAddr)
				writeError(ctx, w, usecase.ErrUnauthenticated)
				return
			}

			ctx = auth.ContextWithUser(ctx, user)
			ctx = logging.With(ctx, logging.From(ctx).With("user_id", user.ID()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
