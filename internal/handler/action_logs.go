package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/goldenkiwi/autoparc/backend/internal/repository"
)

// recordAction appends to the audit trail. The mutation is already
// committed, so a failure is only logged.
func (h *Handler) recordAction(r *http.Request, entity domain.EntityType, entityID string, action domain.ActionType, actor string, changes any) {
	log := &domain.ActionLog{
		EntityType:  entity,
		EntityID:    entityID,
		ActionType:  action,
		PerformedBy: actor,
	}

	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			slog.Error("sérialisation du journal impossible", "error", err)
			return
		}
		log.Changes = data
	}

	if err := h.repository.CreateActionLog(r.Context(), log); err != nil {
		slog.Error("écriture du journal impossible", "entity", entity, "id", entityID, "error", err)
	}
}

// invalidate drops cached reads. Failures are logged: the data will be
// refreshed when the entries expire.
func (h *Handler) invalidate(r *http.Request, prefixes ...string) {
	if err := h.cache.Invalidate(r.Context(), prefixes...); err != nil {
		slog.Warn("invalidation du cache impossible", "prefixes", prefixes, "error", err)
	}
}

func (h *Handler) GetOperatorActionLogs(w http.ResponseWriter, r *http.Request) {
	operator := r.Context().Value(OperatorCtx).(*domain.Operator)

	logs, err := h.repository.ListActionLogs(r.Context(), domain.EntityOperator, operator.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Journal récupéré", logs)
}

func (h *Handler) GetCarActionLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.repository.GetCarByID(r.Context(), id); err != nil {
		switch {
		case repository.IsNoRows(err), repository.IsInvalidText(err):
			h.notFound(w, r, "Véhicule introuvable")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	logs, err := h.repository.ListActionLogs(r.Context(), domain.EntityCar, id)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Journal récupéré", logs)
}
