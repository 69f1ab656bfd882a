package http

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/mind-engage/wamtrack/internal/grading"
	"github.com/mind-engage/wamtrack/internal/rbac"
	"github.com/mind-engage/wamtrack/internal/tracker"
)

// GET /subjects/{id}/report
func SubjectReportHandler(svc *tracker.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := rbac.URLParamID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		rep, err := svc.SubjectReport(r.Context(), id)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, rep)
	}
}

// GET /users/{id}/report?semester=
func UserReportHandler(svc *tracker.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := rbac.URLParamID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		rep, err := svc.UserReport(r.Context(), id, r.URL.Query().Get("semester"))
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, rep)
	}
}

// GET /grading-scheme
func GradingSchemeHandler(scheme grading.Scheme) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"bands": scheme})
	}
}

// GET /grade?score=73.5
func GradeHandler(scheme grading.Scheme) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.URL.Query().Get("score"))
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
			respondError(w, http.StatusBadRequest, "score must be a number")
			return
		}
		resp := map[string]any{"score": score, "grade": scheme.Grade(score)}
		if b, ok := scheme.Lookup(score); ok && b.Description != "" {
			resp["description"] = b.Description
		}
		respondJSON(w, http.StatusOK, resp)
	}
}
