package auth

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/mind-engage/wamtrack/internal/rbac"
	"github.com/mind-engage/wamtrack/internal/tracker"
)

// UserLookup resolves the user behind a token subject.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (tracker.User, error)
}

// AttachRoleFromStore replaces the role claim with the stored role so a
// demoted admin loses rights before the token expires. Deleted users are
// rejected. With allowClaimFallback the claim survives lookup errors.
func AttachRoleFromStore(users UserLookup, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub, ok := rbac.SubjectFromContext(ctx) // set by JWTMiddleware
			if !ok {
				rbac.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			u, err := users.GetUser(ctx, sub)
			switch {
			case err == nil && u.Role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, u.Role)))
			case errors.Is(err, tracker.ErrNotFound):
				rbac.WriteError(w, http.StatusUnauthorized, "unknown user")
			case allowClaimFallback && rbac.RoleFromContext(ctx) != "":
				if err != nil {
					log.Printf("attach role: user %d: %v (using claim)", sub, err)
				}
				next.ServeHTTP(w, r)
			default:
				rbac.WriteError(w, http.StatusForbidden, "forbidden")
			}
		})
	}
}
