package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goldenkiwi/autoparc/backend/internal/cache"
	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/goldenkiwi/autoparc/backend/internal/history"
	"github.com/goldenkiwi/autoparc/backend/internal/repository"
)

func (h *Handler) ListCars(w http.ResponseWriter, r *http.Request) {
	filters, errs := h.parseCarFilters(r.URL.Query())
	if !errs.Valid() {
		h.validationFailed(w, r, errs)
		return
	}

	page, err := cache.Remember(r.Context(), h.cache, cache.ListKey(cache.PrefixCars, filters), func(ctx context.Context) (*domain.Page[domain.Car], error) {
		cars, total, err := h.repository.ListCars(ctx, &filters)
		if err != nil {
			return nil, err
		}
		return domain.NewPage(cars, total, filters.Page, filters.Limit), nil
	})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Liste des véhicules récupérée", page)
}

func (h *Handler) CreateCar(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Employee)

	var req domain.CreateCarRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if errs := h.validator.Car(req); !errs.Valid() {
		h.validationFailed(w, r, errs)
		return
	}

	car := &domain.Car{
		LicensePlate: strings.ToUpper(strings.TrimSpace(req.LicensePlate)),
		Brand:        strings.TrimSpace(req.Brand),
		Model:        strings.TrimSpace(req.Model),
		Status:       req.Status,
		CreatedBy:    &me.ID,
	}

	if err := h.repository.CreateCar(r.Context(), car); err != nil {
		switch {
		case repository.ConstraintName(err) == repository.ConstraintLicensePlate:
			h.writeError(w, r, domain.NewConflict(domain.MsgLicensePlateExists))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.recordAction(r, domain.EntityCar, car.ID, domain.ActionCreate, me.ID, req)
	h.invalidate(r, cache.PrefixCars)

	h.createdResponse(w, r, "Véhicule créé", car)
}

func (h *Handler) GetCar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := cache.Remember(r.Context(), h.cache, cache.CarKey(id), func(ctx context.Context) (*domain.CarDetail, error) {
		car, err := h.repository.GetCarByID(ctx, id)
		if err != nil {
			return nil, err
		}

		detail := &domain.CarDetail{Car: *car}
		current, err := h.repository.GetOpenAssignmentByCar(ctx, id)
		switch {
		case err == nil:
			detail.CurrentAssignment = current
		case !repository.IsNoRows(err):
			return nil, err
		}
		return detail, nil
	})
	if err != nil {
		switch {
		case repository.IsNoRows(err), repository.IsInvalidText(err):
			h.notFound(w, r, "Véhicule introuvable")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "Véhicule récupéré", detail)
}

func (h *Handler) UpdateCar(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Employee)
	car := r.Context().Value(CarCtx).(*domain.Car)

	var req domain.UpdateCarRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if errs := h.validator.CarUpdate(req); !errs.Valid() {
		h.validationFailed(w, r, errs)
		return
	}

	if req.LicensePlate != nil {
		car.LicensePlate = strings.ToUpper(strings.TrimSpace(*req.LicensePlate))
	}
	if req.Brand != nil {
		car.Brand = strings.TrimSpace(*req.Brand)
	}
	if req.Model != nil {
		car.Model = strings.TrimSpace(*req.Model)
	}
	if req.Status != nil {
		// an operator can only drive an active car
		if car.Status == domain.CarStatusActive && *req.Status != domain.CarStatusActive {
			if blocked := h.hasDriver(w, r, car.ID, domain.MsgCarStatusAssigned); blocked {
				return
			}
		}
		car.Status = *req.Status
	}

	if err := h.repository.UpdateCar(r.Context(), car); err != nil {
		switch {
		case repository.ConstraintName(err) == repository.ConstraintLicensePlate:
			h.writeError(w, r, domain.NewConflict(domain.MsgLicensePlateExists))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.recordAction(r, domain.EntityCar, car.ID, domain.ActionUpdate, me.ID, req)
	h.invalidate(r, cache.PrefixCars, cache.CarKey(car.ID), cache.CarHistoryKey(car.ID), cache.PrefixOperators)

	h.successResponse(w, r, "Véhicule mis à jour", car)
}

// DeleteCar retires the car. Cars with a driver cannot be removed.
func (h *Handler) DeleteCar(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Employee)
	car := r.Context().Value(CarCtx).(*domain.Car)

	if blocked := h.hasDriver(w, r, car.ID, domain.MsgCarDeleteAssigned); blocked {
		return
	}

	if err := h.repository.RetireCar(r.Context(), car.ID); err != nil {
		switch {
		case repository.IsNoRows(err):
			h.notFound(w, r, "Véhicule introuvable")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	changes := map[string]map[string]domain.CarStatus{
		"status": {"old": car.Status, "new": domain.CarStatusRetired},
	}
	h.recordAction(r, domain.EntityCar, car.ID, domain.ActionDelete, me.ID, changes)
	h.invalidate(r, cache.PrefixCars, cache.CarKey(car.ID))

	h.successResponse(w, r, "Véhicule supprimé", nil)
}

// hasDriver answers 409 with msg and reports true when the car has an open
// assignment.
func (h *Handler) hasDriver(w http.ResponseWriter, r *http.Request, carID, msg string) bool {
	_, err := h.repository.GetOpenAssignmentByCar(r.Context(), carID)
	switch {
	case err == nil:
		h.writeError(w, r, domain.NewConflict(msg))
		return true
	case repository.IsNoRows(err):
		return false
	default:
		h.internalServerError(w, r, err)
		return true
	}
}

func (h *Handler) GetCarAssignmentHistory(w http.ResponseWriter, r *http.Request) {
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

	assignments, err := cache.Remember(r.Context(), h.cache, cache.CarHistoryKey(id), func(ctx context.Context) ([]domain.Assignment, error) {
		return h.repository.ListAssignments(ctx, domain.AssignmentFilters{CarID: &id})
	})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Historique récupéré", history.Build(assignments, h.now(), h.config.Location()))
}
