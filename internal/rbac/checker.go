package rbac

import (
	"context"
	"strconv"
	"strings"
)

type Checker struct {
	RolePermissions map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{RolePermissions: rp}
}

func (c *Checker) Has(role, perm string) bool {
	for _, p := range c.RolePermissions[role] {
		if matchPerm(p, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

// matchPerm supports "*" and trailing wildcards such as "subject:*".
func matchPerm(pattern, perm string) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(perm, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// Allowed checks a role against the default policy.
func Allowed(role, perm string) bool { return defaultChecker.Has(role, perm) }

// ---- principal in context ----

type ctxKey int

const (
	ctxKeyRole ctxKey = iota
	ctxKeySubject
)

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKeyRole, role)
}

func RoleFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeyRole).(string)
	return s
}

// WithSubject stores the authenticated user id (the token "sub").
func WithSubject(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKeySubject, userID)
}

func SubjectFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKeySubject).(int64)
	return id, ok && id > 0
}

// CanActFor reports whether the caller in ctx may touch records owned by
// ownerID: either they own them or their role grants records:any.
func CanActFor(ctx context.Context, ownerID int64) bool {
	if id, ok := SubjectFromContext(ctx); ok && id == ownerID {
		return true
	}
	return Allowed(RoleFromContext(ctx), PermAnyOwner)
}

// ParseSubject converts a token subject back into a user id.
func ParseSubject(sub string) (int64, bool) {
	id, err := strconv.ParseInt(sub, 10, 64)
	return id, err == nil && id > 0
}
