package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/goldenkiwi/autoparc/backend/internal/config"
	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/goldenkiwi/autoparc/backend/internal/inflight"
	"github.com/goldenkiwi/autoparc/backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret     = "test-secret"
	testEmployeeID = "0b6f5c7e-3d1a-4b7e-9a55-1f0e2d3c4b5a"
	testCarID      = "8c2d4e6f-1a3b-4c5d-8e7f-9a0b1c2d3e4f"
)

type nopChannel struct{}

func (nopChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return nil
}

type testEnv struct {
	h    *Handler
	mock sqlmock.Sqlmock
	mr   *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{Timezone: "UTC"}
	cfg.JWT.Secret = testSecret
	cfg.JWT.Expiration = 1
	cfg.Database.QueryTimeout = 5
	cfg.Redis.OperationTimeout = 1
	cfg.Cache.TTL = 60
	cfg.Inflight.TTL = 30
	cfg.RabbitMQ.Queue = "email_queue"
	cfg.RabbitMQ.PublishTimeout = 1
	cfg.InitialAdmin.Email = "admin@autoparc.fr"

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h, err := NewHandler(cfg, repository.NewRepository(cfg, db), nopChannel{}, rdb)
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testEnv{h: h, mock: mock, mr: mr}
}

func sessionCookie(t *testing.T, role domain.Role) *http.Cookie {
	t.Helper()

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   testEmployeeID,
		},
	})
	ss, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	return &http.Cookie{Name: tokenCookieName, Value: ss}
}

func (e *testEnv) expectMe(role domain.Role) {
	now := time.Now()
	e.mock.ExpectQuery(regexp.QuoteMeta("FROM administrative_employees WHERE id = $1")).
		WithArgs(testEmployeeID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "password_hash", "first_name", "last_name", "role", "is_active", "created_at", "updated_at", "last_login_at", "version",
		}).AddRow(testEmployeeID, "claire.moreau@autoparc.fr", "hash", "Claire", "Moreau", string(role), true, now, now, nil, 1))
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookie *http.Cookie) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.h.Mux.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestProtectedRouteRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)
}

func TestForgedTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)

	cookie := sessionCookie(t, domain.RoleAdmin)
	cookie.Value += "x"

	rec, _ := env.do(t, http.MethodGet, "/api/v1/me", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetMe(t *testing.T) {
	env := newTestEnv(t)
	env.expectMe(domain.RoleManager)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/me", "", sessionCookie(t, domain.RoleManager))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "claire.moreau@autoparc.fr", data["email"])
	assert.NotContains(t, data, "password_hash")
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestManagerCannotCreateEmployee(t *testing.T) {
	env := newTestEnv(t)
	env.expectMe(domain.RoleManager)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/employees", `{"email":"a@b.fr"}`, sessionCookie(t, domain.RoleManager))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAssignWithoutOperatorIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.expectMe(domain.RoleManager)

	path := fmt.Sprintf("/api/v1/cars/%s/assign", testCarID)
	rec, resp := env.do(t, http.MethodPost, path, `{"operator_id":"","start_date":"2999-01-01"}`, sessionCookie(t, domain.RoleManager))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Veuillez sélectionner un opérateur", resp.Errors["operator_id"])

	// only the session lookup reached the database
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.False(t, env.mr.Exists(inflight.Key("assign", testCarID)))
}

func TestAssignRefusedWhileInFlight(t *testing.T) {
	env := newTestEnv(t)
	env.expectMe(domain.RoleManager)
	require.NoError(t, env.mr.Set(inflight.Key("assign", testCarID), "other-request"))

	path := fmt.Sprintf("/api/v1/cars/%s/assign", testCarID)
	rec, resp := env.do(t, http.MethodPost, path, `{"operator_id":"","start_date":"2999-01-01"}`, sessionCookie(t, domain.RoleManager))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.MsgRequestInFlight, resp.Message)
}

func TestMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	env.expectMe(domain.RoleManager)

	rec, resp := env.do(t, http.MethodPost, "/api/v1/operators", `{"employee_number":`, sessionCookie(t, domain.RoleManager))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidBody, resp.Message)
}

func TestOperatorFiltersAreValidated(t *testing.T) {
	env := newTestEnv(t)
	env.expectMe(domain.RoleManager)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/operators?order=sideways&limit=500", "", sessionCookie(t, domain.RoleManager))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "L'ordre doit être asc ou desc", resp.Errors["order"])
	assert.Contains(t, resp.Errors, "limit")
}

func TestWriteError(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", domain.FieldErrors{"end_date": "La date de fin est requise"}.Err(), http.StatusUnprocessableEntity, msgInvalidData},
		{"conflict", domain.NewConflict(domain.MsgAssignmentClosed), http.StatusConflict, domain.MsgAssignmentClosed},
		{"not found", fmt.Errorf("load car: %w", domain.ErrNotFound), http.StatusNotFound, msgNotFound},
		{"transport", &domain.TransportError{Op: "load car", Err: errors.New("connection refused")}, http.StatusServiceUnavailable, msgUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, msgInternalError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.h.writeError(rec, httptest.NewRequest(http.MethodPost, "/", nil), tc.err)

			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.message, resp.Message)
			assert.False(t, resp.Success)
		})
	}
}

func (e *testEnv) expectCar(status domain.CarStatus) {
	now := time.Now()
	e.mock.ExpectQuery(regexp.QuoteMeta("FROM cars WHERE id = $1")).
		WithArgs(testCarID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "license_plate", "brand", "model", "status", "created_at", "updated_at", "created_by",
		}).AddRow(testCarID, "AB-123-CD", "Renault", "Clio", string(status), now, now, nil))
}

func (e *testEnv) expectOpenAssignment(open bool) {
	columns := []string{"id", "car_id", "operator_id", "start_date", "end_date", "notes", "created_at", "created_by"}
	rows := sqlmock.NewRows(columns)
	if open {
		start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		rows.AddRow("assign-1", testCarID, "op-1", start, nil, nil, start, nil)
	}
	e.mock.ExpectQuery(regexp.QuoteMeta("FROM car_operator_assignments WHERE car_id = $1 AND end_date IS NULL")).
		WithArgs(testCarID).
		WillReturnRows(rows)
}

func TestUpdateCarWithDriverMustStayActive(t *testing.T) {
	env := newTestEnv(t)
	env.expectMe(domain.RoleManager)
	env.expectCar(domain.CarStatusActive)
	env.expectOpenAssignment(true)

	path := fmt.Sprintf("/api/v1/cars/%s", testCarID)
	rec, resp := env.do(t, http.MethodPatch, path, `{"status":"maintenance"}`, sessionCookie(t, domain.RoleManager))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.MsgCarStatusAssigned, resp.Message)
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.False(t, env.mr.Exists(inflight.Key("assign", testCarID)))
}

func TestUpdateCar(t *testing.T) {
	env := newTestEnv(t)
	env.expectMe(domain.RoleManager)
	env.expectCar(domain.CarStatusActive)
	env.expectOpenAssignment(false)
	env.mock.ExpectQuery(regexp.QuoteMeta("UPDATE cars")).
		WithArgs("AB-123-CD", "Renault", "Mégane", "maintenance", testCarID).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	env.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO action_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp"}).AddRow(time.Now()))
	require.NoError(t, env.mr.Set("cache:car:"+testCarID, "{}"))

	path := fmt.Sprintf("/api/v1/cars/%s", testCarID)
	rec, resp := env.do(t, http.MethodPatch, path, `{"model":" Mégane ","status":"maintenance"}`, sessionCookie(t, domain.RoleManager))

	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "Mégane", data["model"])
	assert.Equal(t, "maintenance", data["status"])
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.False(t, env.mr.Exists("cache:car:"+testCarID))
}

func TestUpdateCarRejectsBadPlate(t *testing.T) {
	env := newTestEnv(t)
	env.expectMe(domain.RoleManager)
	env.expectCar(domain.CarStatusActive)

	path := fmt.Sprintf("/api/v1/cars/%s", testCarID)
	rec, resp := env.do(t, http.MethodPatch, path, `{"license_plate":"AB123CD","brand":" "}`, sessionCookie(t, domain.RoleManager))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Format invalide (ex: AA-123-BB)", resp.Errors["license_plate"])
	assert.Equal(t, "La marque est requise", resp.Errors["brand"])
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestDeleteCar(t *testing.T) {
	path := fmt.Sprintf("/api/v1/cars/%s", testCarID)

	t.Run("refused while a driver holds it", func(t *testing.T) {
		env := newTestEnv(t)
		env.expectMe(domain.RoleManager)
		env.expectCar(domain.CarStatusActive)
		env.expectOpenAssignment(true)

		rec, resp := env.do(t, http.MethodDelete, path, "", sessionCookie(t, domain.RoleManager))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, domain.MsgCarDeleteAssigned, resp.Message)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("retires a free car", func(t *testing.T) {
		env := newTestEnv(t)
		env.expectMe(domain.RoleManager)
		env.expectCar(domain.CarStatusMaintenance)
		env.expectOpenAssignment(false)
		env.mock.ExpectExec(regexp.QuoteMeta("UPDATE cars SET status = 'retired'")).
			WithArgs(testCarID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		env.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO action_logs")).
			WithArgs(sqlmock.AnyArg(), "car", testCarID, "delete", testEmployeeID, []byte(`{"status":{"new":"retired","old":"maintenance"}}`)).
			WillReturnRows(sqlmock.NewRows([]string{"timestamp"}).AddRow(time.Now()))

		rec, resp := env.do(t, http.MethodDelete, path, "", sessionCookie(t, domain.RoleManager))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Success)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("unknown car", func(t *testing.T) {
		env := newTestEnv(t)
		env.expectMe(domain.RoleManager)
		env.mock.ExpectQuery(regexp.QuoteMeta("FROM cars WHERE id = $1")).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		rec, _ := env.do(t, http.MethodDelete, path, "", sessionCookie(t, domain.RoleManager))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCarFiltersAreValidated(t *testing.T) {
	env := newTestEnv(t)
	env.expectMe(domain.RoleManager)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/cars?page=4611686018427387904&status=stolen", "", sessionCookie(t, domain.RoleManager))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "La page ne peut pas dépasser 1000000", resp.Errors["page"])
	assert.Equal(t, "Statut invalide", resp.Errors["status"])

	// rejected before any listing query
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestConfirmResetPasswordIgnoresEmailCase(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.mr.Set("otp:reset_password:claire.moreau@autoparc.fr", "123456"))

	now := time.Now()
	env.mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(email) = LOWER($1)")).
		WithArgs("claire.moreau@autoparc.fr").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "password_hash", "first_name", "last_name", "role", "is_active", "created_at", "updated_at", "last_login_at", "version",
		}).AddRow(testEmployeeID, "Claire.Moreau@autoparc.fr", "hash", "Claire", "Moreau", "manager", true, now, now, nil, 1))
	env.mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $7 AND version = $8")).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}).AddRow(now, 2))

	body := `{"email":" Claire.Moreau@AutoParc.fr ","otp":"123456","new_password":"Nouveau123"}`
	rec, resp := env.do(t, http.MethodPost, "/api/v1/auth/reset-password/confirm", body, nil)

	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.False(t, env.mr.Exists("otp:reset_password:claire.moreau@autoparc.fr"))
}
