package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/goldenkiwi/autoparc/backend/internal/domain"
)

const employeeColumns = `id, email, password_hash, first_name, last_name, role, is_active, created_at, updated_at, last_login_at, version`

func employeeDst(e *domain.Employee) []any {
	return []any{&e.ID, &e.Email, &e.PasswordHash, &e.FirstName, &e.LastName, &e.Role, &e.IsActive, &e.CreatedAt, &e.UpdatedAt, &e.LastLoginAt, &e.Version}
}

func (r *Repository) GetEmployeeByID(ctx context.Context, id string) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM administrative_employees WHERE id = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	employee := &domain.Employee{}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(employeeDst(employee)...); err != nil {
		return nil, err
	}

	return employee, nil
}

// GetEmployeeByEmail ignores case: addresses typed at login or on the reset
// form rarely match the stored casing.
func (r *Repository) GetEmployeeByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM administrative_employees WHERE LOWER(email) = LOWER($1)`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	employee := &domain.Employee{}
	if err := r.dbpool.QueryRowContext(ctx, query, email).Scan(employeeDst(employee)...); err != nil {
		return nil, err
	}

	return employee, nil
}

// UpdateEmployee writes every mutable column. The update only applies when
// the stored version still matches, otherwise sql.ErrNoRows is returned.
func (r *Repository) UpdateEmployee(ctx context.Context, employee *domain.Employee) error {
	query := `
		UPDATE administrative_employees
		SET
			password_hash = $1,
			email = $2,
			first_name = $3,
			last_name = $4,
			role = $5,
			is_active = $6,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $7 AND version = $8
		RETURNING updated_at, version
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{employee.PasswordHash, employee.Email, employee.FirstName, employee.LastName, employee.Role, employee.IsActive, employee.ID, employee.Version}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&employee.UpdatedAt, &employee.Version)
}

func (r *Repository) TouchEmployeeLogin(ctx context.Context, id string) error {
	query := `UPDATE administrative_employees SET last_login_at = NOW() WHERE id = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	return err
}

func (r *Repository) GetAllEmployees(ctx context.Context) ([]*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM administrative_employees ORDER BY last_name, first_name`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]*domain.Employee, 0)
	for rows.Next() {
		employee := &domain.Employee{}
		if err := rows.Scan(employeeDst(employee)...); err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return employees, nil
}

// DeactivateEmployee keeps the row so that action logs stay attributable.
func (r *Repository) DeactivateEmployee(ctx context.Context, id string) error {
	query := `
		UPDATE administrative_employees
		SET is_active = FALSE, updated_at = NOW(), version = version + 1
		WHERE id = $1
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	return err
}

func (r *Repository) CreateEmployee(ctx context.Context, employee *domain.Employee) error {
	query := `
		INSERT INTO administrative_employees (id, email, password_hash, first_name, last_name, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING is_active, created_at, updated_at, version
	`

	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{employee.ID, employee.Email, employee.PasswordHash, employee.FirstName, employee.LastName, employee.Role}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&employee.IsActive, &employee.CreatedAt, &employee.UpdatedAt, &employee.Version)
}
