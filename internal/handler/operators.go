package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/goldenkiwi/autoparc/backend/internal/cache"
	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/goldenkiwi/autoparc/backend/internal/history"
	"github.com/goldenkiwi/autoparc/backend/internal/repository"
)

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (h *Handler) ListOperators(w http.ResponseWriter, r *http.Request) {
	filters, errs := h.parseOperatorFilters(r.URL.Query())
	if !errs.Valid() {
		h.validationFailed(w, r, errs)
		return
	}

	page, err := cache.Remember(r.Context(), h.cache, cache.ListKey(cache.PrefixOperators, filters), func(ctx context.Context) (*domain.Page[domain.OperatorWithCurrentCar], error) {
		operators, total, err := h.repository.ListOperators(ctx, &filters)
		if err != nil {
			return nil, err
		}
		return domain.NewPage(operators, total, filters.Page, filters.Limit), nil
	})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Liste des opérateurs récupérée", page)
}

func (h *Handler) ListAvailableOperators(w http.ResponseWriter, r *http.Request) {
	operators, err := cache.Remember(r.Context(), h.cache, cache.PrefixAvailableOperators, h.repository.ListAvailableOperators)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Opérateurs disponibles récupérés", operators)
}

func (h *Handler) CreateOperator(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Employee)

	var req domain.CreateOperatorRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if errs := h.validator.Operator(req); !errs.Valid() {
		h.validationFailed(w, r, errs)
		return
	}

	operator := &domain.Operator{
		EmployeeNumber: strings.TrimSpace(req.EmployeeNumber),
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Email:          trimmed(req.Email),
		Phone:          trimmed(req.Phone),
		Department:     trimmed(req.Department),
		CreatedBy:      &me.ID,
	}

	if err := h.repository.CreateOperator(r.Context(), operator); err != nil {
		switch {
		case repository.ConstraintName(err) == repository.ConstraintEmployeeNumber:
			h.writeError(w, r, domain.NewConflict(domain.MsgEmployeeNumberExists))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.recordAction(r, domain.EntityOperator, operator.ID, domain.ActionCreate, me.ID, req)
	h.invalidate(r, cache.PrefixOperators, cache.PrefixAvailableOperators)

	h.createdResponse(w, r, "Opérateur créé", operator)
}

// GetOperator returns the operator with its open assignment and full history.
func (h *Handler) GetOperator(w http.ResponseWriter, r *http.Request) {
	operator := r.Context().Value(OperatorCtx).(*domain.Operator)

	detail, err := cache.Remember(r.Context(), h.cache, cache.OperatorKey(operator.ID), func(ctx context.Context) (*domain.OperatorDetail, error) {
		assignments, err := h.repository.ListAssignments(ctx, domain.AssignmentFilters{OperatorID: &operator.ID})
		if err != nil {
			return nil, err
		}

		detail := &domain.OperatorDetail{Operator: *operator, AssignmentHistory: assignments}
		for i := range assignments {
			if assignments[i].IsOpen() {
				current := assignments[i]
				detail.CurrentAssignment = &current
				break
			}
		}
		return detail, nil
	})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Opérateur récupéré", detail)
}

func (h *Handler) UpdateOperator(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Employee)
	operator := r.Context().Value(OperatorCtx).(*domain.Operator)

	var req domain.UpdateOperatorRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if errs := h.validator.OperatorUpdate(req); !errs.Valid() {
		h.validationFailed(w, r, errs)
		return
	}

	if req.FirstName != nil {
		operator.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		operator.LastName = strings.TrimSpace(*req.LastName)
	}
	// present but empty clears an optional field
	if req.Email != nil {
		operator.Email = trimmed(req.Email)
	}
	if req.Phone != nil {
		operator.Phone = trimmed(req.Phone)
	}
	if req.Department != nil {
		operator.Department = trimmed(req.Department)
	}
	if req.IsActive != nil {
		if !*req.IsActive && operator.IsActive {
			if blocked := h.holdsCar(w, r, operator.ID); blocked {
				return
			}
		}
		operator.IsActive = *req.IsActive
	}

	if err := h.repository.UpdateOperator(r.Context(), operator); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.recordAction(r, domain.EntityOperator, operator.ID, domain.ActionUpdate, me.ID, req)
	h.invalidate(r, cache.PrefixOperators, cache.PrefixAvailableOperators, cache.OperatorKey(operator.ID))

	h.successResponse(w, r, "Opérateur mis à jour", operator)
}

// DeleteOperator deactivates the operator. Operators holding a car cannot
// be removed.
func (h *Handler) DeleteOperator(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Employee)
	operator := r.Context().Value(OperatorCtx).(*domain.Operator)

	if blocked := h.holdsCar(w, r, operator.ID); blocked {
		return
	}

	if err := h.repository.DeactivateOperator(r.Context(), operator.ID); err != nil {
		switch {
		case repository.IsNoRows(err):
			h.notFound(w, r, "Opérateur introuvable")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.recordAction(r, domain.EntityOperator, operator.ID, domain.ActionDelete, me.ID, nil)
	h.invalidate(r, cache.PrefixOperators, cache.PrefixAvailableOperators, cache.OperatorKey(operator.ID))

	h.successResponse(w, r, "Opérateur supprimé", nil)
}

// holdsCar answers 409 and reports true when the operator has an open
// assignment.
func (h *Handler) holdsCar(w http.ResponseWriter, r *http.Request, operatorID string) bool {
	_, err := h.repository.GetOpenAssignmentByOperator(r.Context(), operatorID)
	switch {
	case err == nil:
		h.writeError(w, r, domain.NewConflict(domain.MsgOperatorDeleteAssigned))
		return true
	case repository.IsNoRows(err):
		return false
	default:
		h.internalServerError(w, r, err)
		return true
	}
}

func (h *Handler) GetOperatorAssignmentHistory(w http.ResponseWriter, r *http.Request) {
	operator := r.Context().Value(OperatorCtx).(*domain.Operator)

	assignments, err := cache.Remember(r.Context(), h.cache, cache.OperatorHistoryKey(operator.ID), func(ctx context.Context) ([]domain.Assignment, error) {
		return h.repository.ListAssignments(ctx, domain.AssignmentFilters{OperatorID: &operator.ID})
	})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Historique récupéré", history.Build(assignments, h.now(), h.config.Location()))
}
