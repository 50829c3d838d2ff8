package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/goldenkiwi/autoparc/backend/internal/domain"
)

const (
	msgInternalError = "Erreur interne du serveur"
	msgUnavailable   = "Service momentanément indisponible"
	msgInvalidData   = "Données invalides"
	msgInvalidBody   = "Corps de requête invalide"
	msgNotFound      = "Ressource introuvable"
)

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("erreur interne du serveur", "method", r.Method, "path", r.URL.Path, "error", err)
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
	}
}

type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    any               `json:"data"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, r, status, Response{
		Success: false,
		Message: msg,
		Data:    nil,
	})
}

// badRequest answers a body that could not be decoded.
func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	slog.Debug("corps de requête rejeté", "path", r.URL.Path, "error", err)
	h.errorResponse(w, r, http.StatusBadRequest, msgInvalidBody)
}

func (h *Handler) validationFailed(w http.ResponseWriter, r *http.Request, fields domain.FieldErrors) {
	h.writeJSON(w, r, http.StatusUnprocessableEntity, Response{
		Success: false,
		Message: msgInvalidData,
		Data:    nil,
		Errors:  fields,
	})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, msg string) {
	h.errorResponse(w, r, http.StatusNotFound, msg)
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.errorResponse(w, r, http.StatusInternalServerError, msgInternalError)
}

// writeError renders an error from the domain taxonomy. Only display strings
// reach the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		conflictErr   *domain.ConflictError
		transportErr  *domain.TransportError
	)

	switch {
	case errors.As(err, &validationErr):
		h.validationFailed(w, r, validationErr.Fields)
	case errors.As(err, &conflictErr):
		h.errorResponse(w, r, http.StatusConflict, conflictErr.Message)
	case errors.Is(err, domain.ErrNotFound):
		h.notFound(w, r, msgNotFound)
	case errors.As(err, &transportErr):
		slog.Error("service indisponible", "method", r.Method, "path", r.URL.Path, "op", transportErr.Op, "error", transportErr.Err)
		h.errorResponse(w, r, http.StatusServiceUnavailable, msgUnavailable)
	default:
		h.internalServerError(w, r, err)
	}
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

func (h *Handler) createdResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusCreated, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}
