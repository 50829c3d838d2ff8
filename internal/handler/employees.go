package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/goldenkiwi/autoparc/backend/internal/repository"
	"github.com/goldenkiwi/autoparc/backend/internal/utils"
	"github.com/goldenkiwi/autoparc/backend/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) GetAllEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.repository.GetAllEmployees(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "Liste des employés récupérée", employees)
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Employee)

	var req validation.CreateEmployeeRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if errs := h.validator.Employee(req); !errs.Valid() {
		h.validationFailed(w, r, errs)
		return
	}

	password := utils.GenerateRandomPassword(h.config.NewEmployee.PasswordLength)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	employee := &domain.Employee{
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hashedPassword),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         domain.Role(req.Role),
	}

	if err := h.repository.CreateEmployee(r.Context(), employee); err != nil {
		switch {
		case repository.ConstraintName(err) == repository.ConstraintEmployeeEmail:
			h.validationFailed(w, r, domain.FieldErrors{"email": domain.MsgEmployeeEmailExists})
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.recordAction(r, domain.EntityEmployee, employee.ID, domain.ActionCreate, me.ID, map[string]any{
		"email": employee.Email,
		"role":  employee.Role,
	})

	mailMessage := domain.MailMessage{
		Type: domain.MailNewAccount,
		To:   employee.Email,
		Data: domain.NewAccountMailData{
			FullName: employee.FullName(),
			Email:    employee.Email,
			Password: password,
		},
	}

	// the account exists either way; an admin can trigger a reset if the
	// mail never arrives
	if err := h.mail.Publish(r.Context(), mailMessage); err != nil {
		slog.Error("publication de l'e-mail de bienvenue impossible", "employee", employee.ID, "error", err)
	}

	h.createdResponse(w, r, "Employé créé", employee)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	employee := r.Context().Value(EmployeeInfoCtx).(*domain.Employee)
	h.successResponse(w, r, "Employé récupéré", employee)
}

func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Employee)
	employee := r.Context().Value(EmployeeInfoCtx).(*domain.Employee)

	var req validation.UpdateEmployeeRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if errs := h.validator.EmployeeUpdate(req); !errs.Valid() {
		h.validationFailed(w, r, errs)
		return
	}

	if req.FirstName != nil {
		employee.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		employee.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		employee.Email = strings.TrimSpace(*req.Email)
	}
	if req.Role != nil {
		employee.Role = domain.Role(*req.Role)
	}
	if req.IsActive != nil {
		employee.IsActive = *req.IsActive
	}

	if err := h.repository.UpdateEmployee(r.Context(), employee); err != nil {
		switch {
		case repository.ConstraintName(err) == repository.ConstraintEmployeeEmail:
			h.validationFailed(w, r, domain.FieldErrors{"email": domain.MsgEmployeeEmailExists})
		case repository.IsNoRows(err):
			h.errorResponse(w, r, http.StatusConflict, domain.MsgStaleEmployee)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.recordAction(r, domain.EntityEmployee, employee.ID, domain.ActionUpdate, me.ID, req)

	h.successResponse(w, r, "Employé mis à jour", employee)
}

func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Employee)
	employee := r.Context().Value(EmployeeInfoCtx).(*domain.Employee)

	if employee.ID == me.ID {
		h.errorResponse(w, r, http.StatusConflict, "Vous ne pouvez pas désactiver votre propre compte")
		return
	}

	if err := h.repository.DeactivateEmployee(r.Context(), employee.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.recordAction(r, domain.EntityEmployee, employee.ID, domain.ActionDelete, me.ID, nil)

	h.successResponse(w, r, "Employé désactivé", nil)
}
