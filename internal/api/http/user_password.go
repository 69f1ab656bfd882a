package http

import (
	"encoding/json"
	"net/http"

	authmw "github.com/mind-engage/wamtrack/internal/auth/middleware"
	"github.com/mind-engage/wamtrack/internal/rbac"
)

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// POST /users/change-password
func ChangePasswordHandler(a *authmw.AuthService, accts authmw.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := rbac.SubjectFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req changePasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "bad request")
			return
		}
		if len(req.NewPassword) < 6 || len(req.NewPassword) > 72 {
			respondError(w, http.StatusBadRequest, "new password must be 6 to 72 characters")
			return
		}

		u, err := accts.GetUser(r.Context(), userID)
		if err != nil {
			respondErr(w, err)
			return
		}
		if !authmw.CheckPassword(u.PasswordHash, req.OldPassword) {
			respondError(w, http.StatusForbidden, "incorrect old password")
			return
		}

		hash, err := a.HashPassword(req.NewPassword)
		if err != nil {
			respondErr(w, err)
			return
		}
		if err := accts.UpdatePassword(r.Context(), userID, hash); err != nil {
			respondErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
