package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/wamtrack/internal/grading"
	"github.com/mind-engage/wamtrack/internal/rbac"
	"github.com/mind-engage/wamtrack/internal/tracker"
)

func TestRespondErr(t *testing.T) {
	verr := tracker.Validate(tracker.Subject{})
	require.Error(t, verr)

	tests := []struct {
		err  error
		want int
	}{
		{verr, http.StatusBadRequest},
		{fmt.Errorf("subject 1: %w", tracker.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("student id: %w", tracker.ErrConflict), http.StatusConflict},
		{tracker.ErrLastAdmin, http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		respondErr(rec, tt.err)
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
		assert.Contains(t, rec.Body.String(), `"error"`)
	}
	rec := httptest.NewRecorder()
	respondErr(rec, errors.New("disk on fire"))
	assert.NotContains(t, rec.Body.String(), "disk", "internal errors are not leaked")
}

func TestGradeHandler(t *testing.T) {
	h := GradeHandler(grading.DefaultScheme())
	for _, tc := range []struct {
		q    string
		code int
		want string
	}{
		{"79.99", http.StatusOK, `"grade":"H2A"`},
		{"0", http.StatusOK, `"grade":"N"`},
		{"-1", http.StatusOK, `"grade":"Invalid Score"`},
		{"NaN", http.StatusBadRequest, ""},
		{"", http.StatusBadRequest, ""},
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/grade?score="+tc.q, nil))
		assert.Equal(t, tc.code, rec.Code, tc.q)
		if tc.want != "" {
			assert.Contains(t, rec.Body.String(), tc.want)
		}
	}
}

func TestCreateSubjectDefaultsOwner(t *testing.T) {
	ctx := context.Background()
	svc := tracker.NewService(tracker.NewInMemoryStore())
	u, err := svc.RegisterUser(ctx, tracker.User{Name: "Ada", StudentID: "s1", PasswordHash: "h"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/subjects", strings.NewReader(`{"name":"Algorithms","weight":"25"}`))
	req = req.WithContext(rbac.WithRole(rbac.WithSubject(req.Context(), u.ID), tracker.RoleStudent))
	rec := httptest.NewRecorder()
	CreateSubjectHandler(svc).ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	subjects, err := svc.ListSubjects(ctx, u.ID, "")
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, tracker.Num(25), subjects[0].Weight)
}

func TestListSubjectsFiltersSemester(t *testing.T) {
	ctx := context.Background()
	svc := tracker.NewService(tracker.NewInMemoryStore())
	u, err := svc.RegisterUser(ctx, tracker.User{Name: "Ada", StudentID: "s1", PasswordHash: "h"})
	require.NoError(t, err)
	for _, sem := range []string{"S1", "S2", "S1"} {
		_, err := svc.CreateSubject(ctx, tracker.Subject{Name: "x", Semester: sem, UserID: u.ID})
		require.NoError(t, err)
	}

	r := chi.NewRouter()
	r.Get("/subjects/{id}", ListSubjectsHandler(svc))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/subjects/%d?semester=S1", u.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, strings.Count(rec.Body.String(), `"semester":"S1"`))
	assert.NotContains(t, rec.Body.String(), `"S2"`)
}
