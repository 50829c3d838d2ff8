package handler

import (
	"net/http"

	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/goldenkiwi/autoparc/backend/internal/repository"
	"github.com/goldenkiwi/autoparc/backend/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Employee)
	h.successResponse(w, r, "Profil récupéré", me)
}

func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Employee)

	var req validation.ChangePasswordRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if errs := h.validator.PasswordChange(req); !errs.Valid() {
		h.validationFailed(w, r, errs)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(me.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		h.validationFailed(w, r, domain.FieldErrors{"current_password": "Mot de passe actuel incorrect"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	me.PasswordHash = string(hashedPassword)

	if err := h.repository.UpdateEmployee(r.Context(), me); err != nil {
		switch {
		case repository.IsNoRows(err):
			h.errorResponse(w, r, http.StatusConflict, domain.MsgStaleEmployee)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "Mot de passe modifié", nil)
}
