package server

import (
	"net/http"

	"zapview/internal/analytics"
)

func (s *Server) period(r *http.Request) analytics.Period {
	return analytics.ParsePeriod(r.URL.Query().Get("period"))
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.svc.Overview(r.Context(), subjectFor(r), s.period(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.DashboardStats(r.Context(), subjectFor(r), s.period(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	points, err := s.svc.Daily(r.Context(), subjectFor(r), s.period(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"daily": points})
}

func (s *Server) handleHourly(w http.ResponseWriter, r *http.Request) {
	points, err := s.svc.Hourly(r.Context(), subjectFor(r), s.period(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hourly": points})
}

func (s *Server) handleAreaCodes(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.svc.AreaCodeDistribution(
		r.Context(), subjectFor(r), s.period(r),
	)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"area_codes": buckets})
}
