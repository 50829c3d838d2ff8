package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Constraint and index names from the migrations.
const (
	ConstraintEmployeeEmail       = "administrative_employees_email_key"
	ConstraintLicensePlate        = "cars_license_plate_key"
	ConstraintEmployeeNumber      = "car_operators_employee_number_key"
	ConstraintOpenOperatorAssign  = "car_operator_assignments_open_operator_idx"
	ConstraintOpenCarAssign       = "car_operator_assignments_open_car_idx"
	ConstraintAssignmentDateOrder = "car_operator_assignments_dates_check"
)

func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func IsCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation
}

// ConstraintName returns the violated constraint, or "" for other errors.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// IsInvalidText reports a value PostgreSQL could not parse, such as a
// malformed UUID in a path parameter.
func IsInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation
}
