package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goldenkiwi/autoparc/backend/internal/domain"
)

func (h *Handler) AssignOperator(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Employee)

	var req domain.AssignOperatorRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	assignment, err := h.lifecycle.Assign(r.Context(), chi.URLParam(r, "id"), req, me.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.createdResponse(w, r, "Opérateur attribué", assignment)
}

func (h *Handler) UnassignCar(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Employee)

	var req domain.UnassignOperatorRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	assignment, err := h.lifecycle.UnassignCar(r.Context(), chi.URLParam(r, "id"), req, me.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.successResponse(w, r, "Attribution terminée", assignment)
}

func (h *Handler) UnassignAssignment(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Employee)

	var req domain.UnassignOperatorRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	assignment, err := h.lifecycle.Unassign(r.Context(), chi.URLParam(r, "id"), req, me.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.successResponse(w, r, "Attribution terminée", assignment)
}

func (h *Handler) UpdateAssignmentNotes(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Employee)

	var req domain.UpdateAssignmentNotesRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	assignment, err := h.lifecycle.UpdateNotes(r.Context(), chi.URLParam(r, "id"), req.Notes, me.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.successResponse(w, r, "Notes mises à jour", assignment)
}
