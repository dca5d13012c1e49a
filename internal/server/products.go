package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"zapview/internal/db"
)

func productID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Admit(subjectFor(r), "products"); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	products, err := s.db.ListProducts(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if products == nil {
		products = []db.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": products,
		"count":    len(products),
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Admit(subjectFor(r), "product"); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	id, ok := productID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	product, err := s.db.GetProduct(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "product not found: %d", id)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// decodeProduct reads and validates a catalog entry from the
// request body.
func decodeProduct(r *http.Request) (db.Product, string) {
	var p db.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return p, "invalid JSON body"
	}
	p.Description = strings.TrimSpace(p.Description)
	if p.Description == "" {
		return p, "description is required"
	}
	if p.Price < 0 {
		return p, "price must not be negative"
	}
	if p.Active == "" {
		p.Active = "S"
	}
	if p.Active != "S" && p.Active != "N" {
		return p, `active must be "S" or "N"`
	}
	return p, ""
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Admit(subjectFor(r), "create-product"); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	p, msg := decodeProduct(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, "%s", msg)
		return
	}

	id, err := s.db.InsertProduct(p)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	stored, err := s.db.GetProduct(r.Context(), id)
	if err != nil || stored == nil {
		p.ID = id
		writeJSON(w, http.StatusCreated, p)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Admit(subjectFor(r), "update-product"); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	id, ok := productID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	p, msg := decodeProduct(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, "%s", msg)
		return
	}

	found, err := s.db.UpdateProduct(id, p)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "product not found: %d", id)
		return
	}
	stored, err := s.db.GetProduct(r.Context(), id)
	if err != nil || stored == nil {
		p.ID = id
		writeJSON(w, http.StatusOK, p)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Admit(subjectFor(r), "delete-product"); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	id, ok := productID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	found, err := s.db.DeleteProduct(id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "product not found: %d", id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}
