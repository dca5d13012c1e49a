package server

import (
	"net/http"

	"zapview/internal/timeutil"
)

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Admit(subjectFor(r), "global-stats"); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	stats, err := s.db.GetStats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"turns":     stats.Turns,
		"sessions":  stats.Sessions,
		"insights":  stats.Insights,
		"last_sync": timeutil.Format(s.engine.LastSync()),
	})
}

// handleTriggerSync runs a sync inline. It is not timeout-wrapped
// because a large backlog can legitimately exceed the write
// timeout.
func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Sync(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Admit(subjectFor(r), "sync-status"); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"last_sync":  timeutil.Format(s.engine.LastSync()),
		"last_stats": s.engine.LastStats(),
	})
}
