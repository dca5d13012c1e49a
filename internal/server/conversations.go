package server

import (
	"net/http"

	"zapview/internal/analytics"
)

func (s *Server) handleListConversations(
	w http.ResponseWriter, r *http.Request,
) {
	period := analytics.ParsePeriod(r.URL.Query().Get("period"))
	convs, err := s.svc.Conversations(r.Context(), subjectFor(r), period)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":        period,
		"conversations": convs,
		"count":         len(convs),
	})
}

func (s *Server) handleGetConversation(
	w http.ResponseWriter, r *http.Request,
) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	conv, err := s.svc.Conversation(r.Context(), subjectFor(r), sessionID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if conv == nil {
		writeError(w, http.StatusNotFound,
			"conversation not found: %s", sessionID)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}
