package http

import (
	"net/http"
)

// handleListCategories serves GET /api/categories.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.categories.ListCategories(r.Context(), mustOwner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cats)
}

// handleCreateCategory serves POST /api/categories.
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var body categoryBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.categories.CreateCategory(r.Context(), mustOwner(r), body.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, c)
}

// handleRenameCategory serves PUT /api/categories/{id}.
func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body categoryBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.categories.RenameCategory(r.Context(), mustOwner(r), id, body.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

// handleDeleteCategory serves DELETE /api/categories/{id}.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.categories.DeleteCategory(r.Context(), mustOwner(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	_ = NewJSONResponse().NoContent().Send(w)
}

// handleSeedCategories serves POST /api/categories/defaults and returns the
// categories it created.
func (s *Server) handleSeedCategories(w http.ResponseWriter, r *http.Request) {
	created, err := s.categories.CreateDefaultCategories(r.Context(), mustOwner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}
