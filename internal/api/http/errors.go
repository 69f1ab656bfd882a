package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/wamtrack/internal/rbac"
	"github.com/mind-engage/wamtrack/internal/tracker"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondError writes {"error": msg}; the web client shows the message as-is.
func respondError(w http.ResponseWriter, status int, msg string) {
	rbac.WriteError(w, status, msg)
}

// respondErr maps service errors onto HTTP status codes.
func respondErr(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		respondError(w, http.StatusBadRequest, verrs.Error())
	case errors.Is(err, tracker.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tracker.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, tracker.ErrLastAdmin), errors.Is(err, tracker.ErrInvalidRole):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("api: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
