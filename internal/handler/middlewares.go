package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/goldenkiwi/autoparc/backend/internal/inflight"
	"github.com/goldenkiwi/autoparc/backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/tomasen/realip"
)

const tokenCookieName = "__autoparc_token"

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("requête traitée", "status", rw.StatusCode, "ip", realip.FromRequest(r), "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				fmt.Print(string(debug.Stack())) // slog would mangle the stack
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(tokenCookieName)
		if err != nil {
			switch {
			case errors.Is(err, http.ErrNoCookie):
				h.errorResponse(w, r, http.StatusUnauthorized, "Utilisateur non connecté")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		claims := &AuthClaims{}
		_, err = jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(h.config.JWT.Secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			h.errorResponse(w, r, http.StatusUnauthorized, "Jeton invalide")
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, RoleCtxKey, claims.Role)
		ctx = context.WithValue(ctx, SubCtxKey, claims.Subject)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// me loads the signed-in employee. Deactivated accounts lose access even
// with a valid token.
func (h *Handler) me(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub := r.Context().Value(SubCtxKey).(string)

		me, err := h.repository.GetEmployeeByID(r.Context(), sub)
		if err != nil {
			switch {
			case repository.IsNoRows(err):
				h.errorResponse(w, r, http.StatusUnauthorized, "Compte introuvable")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}
		if !me.IsActive {
			h.errorResponse(w, r, http.StatusUnauthorized, "Compte désactivé")
			return
		}

		ctx := context.WithValue(r.Context(), MeCtx, me)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) RequiredRole(roles ...domain.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := domain.Role(r.Context().Value(RoleCtxKey).(string))
			if !slices.Contains(roles, role) {
				h.errorResponse(w, r, http.StatusForbidden, "Droits insuffisants")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) employeeInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		employee, err := h.repository.GetEmployeeByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			switch {
			case repository.IsNoRows(err), repository.IsInvalidText(err):
				h.notFound(w, r, "Employé introuvable")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), EmployeeInfoCtx, employee)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) preventOperateInitialAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		employee := r.Context().Value(EmployeeInfoCtx).(*domain.Employee)
		if employee.Email == h.config.InitialAdmin.Email {
			h.errorResponse(w, r, http.StatusForbidden, "Opération interdite sur l'administrateur initial")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) operatorInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		operator, err := h.repository.GetOperatorByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			switch {
			case repository.IsNoRows(err), repository.IsInvalidText(err):
				h.notFound(w, r, "Opérateur introuvable")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), OperatorCtx, operator)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) carInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		car, err := h.repository.GetCarByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			switch {
			case repository.IsNoRows(err), repository.IsInvalidText(err):
				h.notFound(w, r, "Véhicule introuvable")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), CarCtx, car)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// singleFlight holds the in-flight lock of action on the {id} resource for
// the whole request, so a double submission is refused instead of racing.
func (h *Handler) singleFlight(action string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, err := h.inflight.Acquire(r.Context(), action, chi.URLParam(r, "id"))
			if err != nil {
				switch {
				case errors.Is(err, inflight.ErrInFlight):
					h.errorResponse(w, r, http.StatusConflict, domain.MsgRequestInFlight)
				default:
					h.writeError(w, r, &domain.TransportError{Op: "acquire in-flight lock", Err: err})
				}
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
