package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"zapview/internal/db"
)

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Admit(subjectFor(r), "insights"); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	insights, err := s.db.ListInsights(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if insights == nil {
		insights = []db.Insight{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"insights": insights,
		"count":    len(insights),
	})
}

func (s *Server) handleGetInsight(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Admit(subjectFor(r), "insight"); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	id := r.PathValue("id")
	insight, err := s.db.GetInsight(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if insight == nil {
		writeError(w, http.StatusNotFound, "insight not found: %s", id)
		return
	}
	writeJSON(w, http.StatusOK, insight)
}

func (s *Server) handleDeleteInsight(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Admit(subjectFor(r), "delete-insight"); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	id := r.PathValue("id")
	insight, err := s.db.GetInsight(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if insight == nil {
		writeError(w, http.StatusNotFound, "insight not found: %s", id)
		return
	}
	if err := s.db.DeleteInsight(id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// maxQuestionLen bounds insight questions; anything longer is a
// client mistake, not a real question.
const maxQuestionLen = 2000

func (s *Server) handleCreateInsight(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if len(req.Question) > maxQuestionLen {
		writeError(w, http.StatusBadRequest,
			"question exceeds %d characters", maxQuestionLen)
		return
	}

	// Generation shares the read quota so a chat loop cannot
	// starve the dashboard.
	if err := s.svc.Admit(subjectFor(r), "generate"); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	answer, err := s.generateFunc(r.Context(), req.Question)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	insight := db.Insight{
		ID:       uuid.NewString(),
		Question: req.Question,
		Answer:   answer,
	}
	if err := s.db.InsertInsight(insight); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	stored, err := s.db.GetInsight(r.Context(), insight.ID)
	if err != nil || stored == nil {
		// Fall back to what we know; created_at is best effort.
		writeJSON(w, http.StatusCreated, insight)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}
