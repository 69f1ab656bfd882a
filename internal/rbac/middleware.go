package rbac

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

var defaultChecker = NewChecker(nil)

// ErrBadParam is returned by owner lookups when the URL parameter is malformed.
var ErrBadParam = errors.New("rbac: bad parameter")

// Require enforces a single permission.
func Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !defaultChecker.Has(role, perm) {
				WriteError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny enforces that the role has at least one of the permissions.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !defaultChecker.Any(role, perms...) {
				WriteError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnerOr lets the request through when owner(r) is the caller or
// the caller's role holds perm. A failed lookup answers 404.
func RequireOwnerOr(perm string, owner func(r *http.Request) (int64, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if defaultChecker.Has(RoleFromContext(ctx), perm) {
				next.ServeHTTP(w, r)
				return
			}
			id, err := owner(r)
			switch {
			case errors.Is(err, ErrBadParam):
				WriteError(w, http.StatusBadRequest, err.Error())
				return
			case err != nil:
				WriteError(w, http.StatusNotFound, "not found")
				return
			}
			if sub, ok := SubjectFromContext(ctx); !ok || sub != id {
				WriteError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelf is RequireOwnerOr keyed on a user id URL parameter.
func RequireSelf(param string) func(http.Handler) http.Handler {
	return RequireOwnerOr(PermAnyOwner, func(r *http.Request) (int64, error) {
		return URLParamID(r, param)
	})
}

// URLParamID parses a positive integer chi URL parameter.
func URLParamID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrBadParam, param)
	}
	return id, nil
}

// WriteError answers with {"error": msg}, the body shape clients read.
func WriteError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
