package http

import (
	"encoding/json"
	"net/http"

	"github.com/mind-engage/wamtrack/internal/rbac"
	"github.com/mind-engage/wamtrack/internal/tracker"
)

// SubjectOwner resolves {id} as a subject for rbac.RequireOwnerOr.
func SubjectOwner(svc *tracker.Service) func(r *http.Request) (int64, error) {
	return func(r *http.Request) (int64, error) {
		id, err := rbac.URLParamID(r, "id")
		if err != nil {
			return 0, err
		}
		return svc.SubjectOwner(r.Context(), id)
	}
}

// GET /subjects/{id}?semester=  ({id} is the user)
func ListSubjectsHandler(svc *tracker.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := rbac.URLParamID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		subjects, err := svc.ListSubjects(r.Context(), userID, r.URL.Query().Get("semester"))
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"subjects": subjects})
	}
}

// GET /subject/{id}
func GetSubjectHandler(svc *tracker.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := rbac.URLParamID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		sb, err := svc.GetSubject(r.Context(), id)
		if err != nil {
			respondErr(w, err)
			return
		}
		// the web client reads subject[0]
		respondJSON(w, http.StatusOK, map[string]any{"subject": []tracker.Subject{sb}})
	}
}

// POST /subjects
func CreateSubjectHandler(svc *tracker.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sb tracker.Subject
		if err := json.NewDecoder(r.Body).Decode(&sb); err != nil {
			respondError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		if sb.UserID == 0 {
			sb.UserID, _ = rbac.SubjectFromContext(r.Context())
		}
		if !rbac.CanActFor(r.Context(), sb.UserID) {
			respondError(w, http.StatusForbidden, "forbidden")
			return
		}
		sb.ID = 0
		created, err := svc.CreateSubject(r.Context(), sb)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, created)
	}
}

// PUT /subjects/{id}
func UpdateSubjectHandler(svc *tracker.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := rbac.URLParamID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		var sb tracker.Subject
		if err := json.NewDecoder(r.Body).Decode(&sb); err != nil {
			respondError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		sb.ID = id
		updated, err := svc.UpdateSubject(r.Context(), sb)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, updated)
	}
}

// DELETE /subjects/{id}
func DeleteSubjectHandler(svc *tracker.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := rbac.URLParamID(r, "id")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := svc.DeleteSubject(r.Context(), id); err != nil {
			respondErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
