package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"zapview/internal/analytics"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already out; an encode failure has nowhere to go.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{
		"error": fmt.Sprintf(format, args...),
	})
}

// writeServiceError maps analytics errors onto HTTP statuses.
// Throttled callers get 429 with a Retry-After hint; canceled
// requests get client-side statuses rather than 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, analytics.ErrThrottled):
		w.Header().Set("Retry-After",
			strconv.Itoa(int(s.cfg.RateWindow.Seconds())))
		writeError(w, http.StatusTooManyRequests,
			"rate limit exceeded, retry later")
	case errors.Is(err, context.Canceled):
		// Client went away; 499 in nginx parlance.
		writeError(w, 499, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request timed out")
	default:
		s.log.Error().Err(err).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
