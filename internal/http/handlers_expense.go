package http

import (
	"net/http"

	applog "spendwise/internal/log"
)

// handleListExpenses serves GET /api/expenses.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	owner := mustOwner(r)
	q, err := ParseListQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.lister.List(r.Context(), owner, q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).DebugContext(r.Context(), "Expenses listed",
		applog.NewFields().
			WithOwner(owner).
			WithQuery(q.Month, q.CategoryID, result.Page, result.Limit).
			ToSlice()...)
	writeJSON(w, r, http.StatusOK, result)
}

// handleCreateExpense serves POST /api/expenses.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var body expenseBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := body.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}

	e, err := s.expenses.CreateExpense(r.Context(), mustOwner(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, e)
}

// handleUpdateExpense serves PUT /api/expenses/{id}.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body expenseBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := body.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}

	e, err := s.expenses.UpdateExpense(r.Context(), mustOwner(r), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, e)
}

// handleDeleteExpense serves DELETE /api/expenses/{id}.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.expenses.DeleteExpense(r.Context(), mustOwner(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	_ = NewJSONResponse().NoContent().Send(w)
}
