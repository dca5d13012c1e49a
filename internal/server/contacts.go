package server

import "net/http"

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Admit(subjectFor(r), "contact"); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	phone := r.PathValue("phone")
	name, err := s.db.GetContactName(r.Context(), phone)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if name == "" {
		writeError(w, http.StatusNotFound, "contact not found: %s", phone)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"phone": phone,
		"name":  name,
	})
}
