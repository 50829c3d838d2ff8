package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/goldenkiwi/autoparc/backend/internal/repository"
	"github.com/goldenkiwi/autoparc/backend/internal/utils"
	"github.com/goldenkiwi/autoparc/backend/internal/validation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const msgBadCredentials = "Email ou mot de passe incorrect"

type AuthClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// normalizeEmail is applied to every address typed by a user before it is
// looked up or used as a key.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func resetPasswordKey(email string) string {
	return "otp:reset_password:" + normalizeEmail(email)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req validation.LoginRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if errs := h.validator.Login(req); !errs.Valid() {
		h.validationFailed(w, r, errs)
		return
	}

	employee, err := h.repository.GetEmployeeByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		switch {
		case repository.IsNoRows(err):
			h.errorResponse(w, r, http.StatusUnauthorized, msgBadCredentials)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(req.Password)); err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			h.errorResponse(w, r, http.StatusUnauthorized, msgBadCredentials)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if !employee.IsActive {
		h.errorResponse(w, r, http.StatusUnauthorized, "Compte désactivé")
		return
	}

	now := h.now()
	expiration := now.Add(time.Duration(h.config.JWT.Expiration) * time.Hour)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(employee.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   employee.ID,
		},
	})
	ss, err := token.SignedString([]byte(h.config.JWT.Secret))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.repository.TouchEmployeeLogin(r.Context(), employee.ID); err != nil {
		slog.Warn("mise à jour de la dernière connexion impossible", "employee", employee.ID, "error", err)
	}

	cookie := &http.Cookie{
		Name:     tokenCookieName,
		Value:    ss,
		Expires:  expiration,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	}

	if h.config.Environment == "production" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, cookie)

	h.successResponse(w, r, "Connexion réussie", employee)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		Path:     "/",
		HttpOnly: true,
	})

	h.successResponse(w, r, "Déconnexion réussie", nil)
}

func (h *Handler) RequireResetPassword(w http.ResponseWriter, r *http.Request) {
	var req validation.ForgotPasswordRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if errs := h.validator.ForgotPassword(req); !errs.Valid() {
		h.validationFailed(w, r, errs)
		return
	}

	const sent = "Un code de réinitialisation a été envoyé par email"

	employee, err := h.repository.GetEmployeeByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		switch {
		case repository.IsNoRows(err):
			// same answer as for a known address, so the endpoint does not
			// reveal which accounts exist
			h.successResponse(w, r, sent, nil)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	otp := utils.GenerateRandomOTP()

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationTimeout)*time.Second)
	defer cancel()

	if err := h.redisClient.Set(ctx, resetPasswordKey(employee.Email), otp, time.Duration(h.config.OTP.Expiration)*time.Second).Err(); err != nil {
		h.writeError(w, r, &domain.TransportError{Op: "store otp", Err: err})
		return
	}

	mailMessage := domain.MailMessage{
		Type: domain.MailResetPassword,
		To:   employee.Email,
		Data: domain.ResetPasswordMailData{
			FullName:   employee.FullName(),
			OTP:        otp,
			Expiration: h.config.OTP.Expiration / 60, // minutes in the mail, seconds in config
		},
	}

	if err := h.mail.Publish(r.Context(), mailMessage); err != nil {
		h.writeError(w, r, &domain.TransportError{Op: "publish reset mail", Err: err})
		return
	}

	h.successResponse(w, r, sent, nil)
}

func (h *Handler) ConfirmResetPassword(w http.ResponseWriter, r *http.Request) {
	var req validation.ResetPasswordRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if errs := h.validator.PasswordReset(req); !errs.Valid() {
		h.validationFailed(w, r, errs)
		return
	}

	const invalidCode = "Code de vérification invalide"

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationTimeout)*time.Second)
	defer cancel()

	key := resetPasswordKey(req.Email)
	otp, err := h.redisClient.Get(ctx, key).Result()
	if err != nil {
		switch {
		case errors.Is(err, redis.Nil):
			h.errorResponse(w, r, http.StatusBadRequest, invalidCode)
		default:
			h.writeError(w, r, &domain.TransportError{Op: "load otp", Err: err})
		}
		return
	}

	if otp != req.OTP {
		h.errorResponse(w, r, http.StatusBadRequest, invalidCode)
		return
	}

	employee, err := h.repository.GetEmployeeByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		switch {
		case repository.IsNoRows(err):
			h.errorResponse(w, r, http.StatusBadRequest, invalidCode)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	employee.PasswordHash = string(hashedPassword)

	if err := h.repository.UpdateEmployee(r.Context(), employee); err != nil {
		switch {
		case repository.IsNoRows(err):
			h.errorResponse(w, r, http.StatusConflict, domain.MsgStaleEmployee)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := h.redisClient.Del(ctx, key).Err(); err != nil {
		slog.Warn("suppression du code de réinitialisation impossible", "error", err)
	}

	h.successResponse(w, r, "Mot de passe réinitialisé", nil)
}
