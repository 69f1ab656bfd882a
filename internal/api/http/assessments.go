package http

import (
	"encoding/json"
	"net/http"

	"github.com/mind-engage/wamtrack/internal/rbac"
	"github.com/mind-engage/wamtrack/internal/tracker"
)

// AssessmentOwner resolves {id} as an assessment for rbac.RequireOwnerOr.
func AssessmentOwner(svc *tracker.Service) func(r *http.Request) (int64, error) {
	return func(r *http.Request) (int64, error) {
		id, err := rbac.URLParamID(r, "id")
		if err != nil {
			return 0, err
		}
		return svc.AssessmentOwner(r.Context(), id)
	}
}

// GET /assessments/{id}  ({id} is the subject)
func ListAssessmentsHandler(svc *tracker.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subjectID, err := rbac.URLParamID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		as, err := svc.ListAssessments(r.Context(), subjectID)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"assessments": as})
	}
}

// POST /assessments
func CreateAssessmentHandler(svc *tracker.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var a tracker.Assessment
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			respondError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		owner, err := svc.SubjectOwner(r.Context(), a.SubjectID)
		if err != nil {
			respondErr(w, err)
			return
		}
		if !rbac.CanActFor(r.Context(), owner) {
			respondError(w, http.StatusForbidden, "forbidden")
			return
		}
		a.ID = 0
		created, err := svc.CreateAssessment(r.Context(), a)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, created)
	}
}

// PUT /assessments/{id}
func UpdateAssessmentHandler(svc *tracker.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := rbac.URLParamID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		var a tracker.Assessment
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			respondError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		a.ID = id
		updated, err := svc.UpdateAssessment(r.Context(), a)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, updated)
	}
}

// DELETE /assessments/{id}
func DeleteAssessmentHandler(svc *tracker.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := rbac.URLParamID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := svc.DeleteAssessment(r.Context(), id); err != nil {
			respondErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
