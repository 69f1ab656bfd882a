package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mind-engage/wamtrack/internal/rbac"
	"github.com/mind-engage/wamtrack/internal/tracker"
)

// GET /users?q=&limit=&offset=
func ListUsersHandler(svc *tracker.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		users, err := svc.ListUsers(r.Context(), tracker.ListOpts{
			Q:      q.Get("q"),
			Limit:  parseIntDefault(q.Get("limit"), 50),
			Offset: parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"users": users})
	}
}

type updateUserRoleReq struct {
	Role string `json:"role"`
}

// PUT /users/{id}/role
func AdminUpdateUserRoleHandler(svc *tracker.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := rbac.URLParamID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		var req updateUserRoleReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "bad json")
			return
		}
		u, err := svc.SetRole(r.Context(), id, strings.ToLower(strings.TrimSpace(req.Role)))
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"user": u})
	}
}

// GET /users/{id}/export returns every record held for a user as a
// downloadable JSON file.
func AdminExportUserHandler(svc *tracker.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := rbac.URLParamID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		exp, err := svc.ExportUser(r.Context(), id)
		if err != nil {
			respondErr(w, err)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("user_%d.json", id)))
		respondJSON(w, http.StatusOK, exp)
	}
}

// DELETE /users/{id}
func AdminDeleteUserHandler(svc *tracker.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := rbac.URLParamID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := svc.DeleteUser(r.Context(), id); err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
