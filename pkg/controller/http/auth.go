package http

import (
	"net/http"

	"github.com/secmon-lab/cogsmith/pkg/domain/model/auth"
)

type userMeResponse struct {
	ID    string `json:"id"`
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// authMeHandler returns the authenticated caller
func authMeHandler(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	writeJSON(r.Context(), w, http.StatusOK, userMeResponse{
		ID:    user.ID(),
		Sub:   user.Sub,
		Email: user.Email,
		Name:  user.Name,
	})
}
