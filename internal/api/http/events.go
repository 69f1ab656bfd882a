package http

import (
	"net/http"

	syncx "github.com/mind-engage/wamtrack/internal/sync"
)

// GET /events?key=subject:12&limit=50  newest first
func ListEventsHandler(events syncx.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		out, err := events.List(r.Context(), q.Get("key"), parseIntDefault(q.Get("limit"), 100))
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"events": out})
	}
}
