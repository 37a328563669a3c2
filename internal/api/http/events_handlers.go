package http

import (
	"context"
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/mindengage-progress/internal/sync"
)

type EventLister interface {
	List(ctx context.Context, typ string, limit int) ([]syncx.Event, error)
}

// ListEventsHandler handles GET /admin/events?type=&limit=.
func ListEventsHandler(events EventLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 1000 {
				writeStatus(w, http.StatusBadRequest, "limit must be between 1 and 1000")
				return
			}
			limit = n
		}
		out, err := events.List(r.Context(), r.URL.Query().Get("type"), limit)
		if err != nil {
			writeStatus(w, http.StatusInternalServerError, "list events failed")
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
