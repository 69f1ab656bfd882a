package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestCheckerHas(t *testing.T) {
	c := NewChecker(nil)
	assert.True(t, c.Has("student", PermSubjectEdit))
	assert.True(t, c.Has("student", PermAssessmentView))
	assert.True(t, c.Has("student", PermReportView))
	assert.False(t, c.Has("student", PermUsersList))
	assert.False(t, c.Has("student", PermAnyOwner))
	assert.True(t, c.Has("admin", PermEventsView))
	assert.False(t, c.Has("", PermSchemeView))
	assert.False(t, c.Has("guest", PermSchemeView))
	assert.True(t, c.Any("student", PermUsersList, PermSchemeView))
}

func TestCanActFor(t *testing.T) {
	ctx := WithSubject(WithRole(context.Background(), "student"), 7)
	assert.True(t, CanActFor(ctx, 7))
	assert.False(t, CanActFor(ctx, 8))

	admin := WithSubject(WithRole(context.Background(), "admin"), 1)
	assert.True(t, CanActFor(admin, 8))

	assert.False(t, CanActFor(context.Background(), 0))
}

func TestRequire(t *testing.T) {
	h := Require(PermUsersList)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	h.ServeHTTP(rec, req.WithContext(WithRole(req.Context(), "student")))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithRole(req.Context(), "admin")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAny(t *testing.T) {
	h := RequireAny(PermSchemeView, PermReportView)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(role string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/grade", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req.WithContext(WithRole(req.Context(), role)))
		return rec
	}
	assert.Equal(t, http.StatusOK, do("student").Code)
	assert.Equal(t, http.StatusOK, do("admin").Code)
	rec := do("guest")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
	assert.Equal(t, http.StatusForbidden, do("").Code)
}

func TestRequireSelf(t *testing.T) {
	r := chi.NewRouter()
	r.With(RequireSelf("userID")).Get("/subjects/{userID}", func(w http.ResponseWriter, r *http.Request) {})

	do := func(path string, role string, sub int64) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		ctx := WithSubject(WithRole(req.Context(), role), sub)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req.WithContext(ctx))
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, do("/subjects/3", "student", 3))
	assert.Equal(t, http.StatusForbidden, do("/subjects/4", "student", 3))
	assert.Equal(t, http.StatusOK, do("/subjects/4", "admin", 1))
	assert.Equal(t, http.StatusBadRequest, do("/subjects/abc", "student", 3))
}

func TestParseSubject(t *testing.T) {
	id, ok := ParseSubject("42")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	_, ok = ParseSubject("ada")
	assert.False(t, ok)
	_, ok = ParseSubject("0")
	assert.False(t, ok)
}

func TestRequireOwnerOr(t *testing.T) {
	owners := map[string]int64{"10": 3}
	lookup := func(r *http.Request) (int64, error) {
		_, err := URLParamID(r, "id")
		if err != nil {
			return 0, err
		}
		if o, ok := owners[chi.URLParam(r, "id")]; ok {
			return o, nil
		}
		return 0, errors.New("missing")
	}
	r := chi.NewRouter()
	r.With(RequireOwnerOr(PermAnyOwner, lookup)).Get("/subject/{id}", func(w http.ResponseWriter, r *http.Request) {})

	do := func(path, role string, sub int64) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req.WithContext(WithSubject(WithRole(req.Context(), role), sub)))
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, do("/subject/10", "student", 3))
	assert.Equal(t, http.StatusForbidden, do("/subject/10", "student", 4))
	assert.Equal(t, http.StatusNotFound, do("/subject/11", "student", 3))
	assert.Equal(t, http.StatusBadRequest, do("/subject/x", "student", 3))
	assert.Equal(t, http.StatusOK, do("/subject/11", "admin", 1), "admins skip the lookup")
}
