package main

import (
	"github.com/go-chi/chi/v5"

	api "github.com/mind-engage/wamtrack/internal/api/http"
	"github.com/mind-engage/wamtrack/internal/rbac"
)

// mountAdminRoutes wires the admin-only user management and audit APIs.
func mountAdminRoutes(r chi.Router, d deps) {
	// ---- Users ----
	r.With(rbac.Require(rbac.PermUsersList)).Get("/users", api.ListUsersHandler(d.svc))
	r.With(rbac.Require(rbac.PermUsersManage)).Put("/users/{id}/role", api.AdminUpdateUserRoleHandler(d.svc))
	r.With(rbac.Require(rbac.PermUsersManage)).Post("/users/import", api.BulkImportUsersHandler(d.auth, d.svc))

	// ---- Compliance & Audit ----
	r.With(rbac.Require(rbac.PermUsersManage)).Get("/users/{id}/export", api.AdminExportUserHandler(d.svc))
	r.With(rbac.Require(rbac.PermUsersManage)).Delete("/users/{id}", api.AdminDeleteUserHandler(d.svc))
	r.With(rbac.Require(rbac.PermEventsView)).Get("/events", api.ListEventsHandler(d.events))
}
