package journal

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/antibyte/linebasic/pkg/auth"
	"github.com/antibyte/linebasic/pkg/logger"
)

type entryJSON struct {
	ID        string    `json:"id"`
	Line      string    `json:"line"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// HandleRecent serves the caller's own journal, newest first. It expects
// the session ID in the request context, see auth.RequireToken. The limit
// query parameter caps the number of entries.
func (j *Journal) HandleRecent(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.SessionIDFromContext(r.Context())
	if sessionID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 1000 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := j.Recent(r.Context(), sessionID, limit)
	if err != nil {
		logger.Error(logger.AreaJournal, "[%s] reading journal failed: %v", sessionID, err)
		http.Error(w, "Journal unavailable", http.StatusInternalServerError)
		return
	}

	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryJSON{
			ID:        e.ID,
			Line:      e.Line,
			Outcome:   e.Outcome,
			Error:     e.ErrorText,
			CreatedAt: e.CreatedAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
