package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/google/uuid"
)

var operatorColumns = []string{
	"o.id", "o.employee_number", "o.first_name", "o.last_name",
	"o.email", "o.phone", "o.department", "o.is_active",
	"o.created_at", "o.updated_at", "o.created_by",
}

var operatorSortColumns = map[string]string{
	"employee_number": "o.employee_number",
	"first_name":      "o.first_name",
	"last_name":       "o.last_name",
	"department":      "o.department",
	"created_at":      "o.created_at",
}

func operatorDst(o *domain.Operator) []any {
	return []any{
		&o.ID, &o.EmployeeNumber, &o.FirstName, &o.LastName,
		&o.Email, &o.Phone, &o.Department, &o.IsActive,
		&o.CreatedAt, &o.UpdatedAt, &o.CreatedBy,
	}
}

func (r *Repository) CreateOperator(ctx context.Context, operator *domain.Operator) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return insertOperator(ctx, r.dbpool, operator)
}

func insertOperator(ctx context.Context, q queryRower, operator *domain.Operator) error {
	query := `
		INSERT INTO car_operators (id, employee_number, first_name, last_name, email, phone, department, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING is_active, created_at, updated_at
	`

	if operator.ID == "" {
		operator.ID = uuid.NewString()
	}

	args := []any{
		operator.ID,
		operator.EmployeeNumber,
		operator.FirstName,
		operator.LastName,
		operator.Email,
		operator.Phone,
		operator.Department,
		operator.CreatedBy,
	}
	return q.QueryRowContext(ctx, query, args...).Scan(&operator.IsActive, &operator.CreatedAt, &operator.UpdatedAt)
}

func (r *Repository) GetOperatorByID(ctx context.Context, id string) (*domain.Operator, error) {
	query, args, err := r.builder.Select(operatorColumns...).From("car_operators o").Where(sq.Eq{"o.id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	operator := &domain.Operator{}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(operatorDst(operator)...); err != nil {
		return nil, err
	}

	return operator, nil
}

// UpdateOperator writes the mutable columns. The employee number is never
// touched.
func (r *Repository) UpdateOperator(ctx context.Context, operator *domain.Operator) error {
	query := `
		UPDATE car_operators
		SET
			first_name = $1,
			last_name = $2,
			email = $3,
			phone = $4,
			department = $5,
			is_active = $6,
			updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{
		operator.FirstName,
		operator.LastName,
		operator.Email,
		operator.Phone,
		operator.Department,
		operator.IsActive,
		operator.ID,
	}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&operator.UpdatedAt)
}

func (r *Repository) DeactivateOperator(ctx context.Context, id string) error {
	query := `UPDATE car_operators SET is_active = FALSE, updated_at = NOW() WHERE id = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func operatorConditions(f *domain.OperatorFilters) sq.And {
	where := sq.And{}
	if f.IsActive != nil {
		where = append(where, sq.Eq{"o.is_active": *f.IsActive})
	}
	if f.Department != "" {
		where = append(where, sq.Eq{"o.department": f.Department})
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		where = append(where, sq.Or{
			sq.ILike{"o.first_name": pattern},
			sq.ILike{"o.last_name": pattern},
			sq.ILike{"o.employee_number": pattern},
			sq.ILike{"o.email": pattern},
		})
	}
	return where
}

func operatorOrder(f *domain.OperatorFilters) string {
	column, ok := operatorSortColumns[f.SortBy]
	if !ok {
		return "o.created_at DESC, o.id"
	}
	direction := "ASC"
	if f.Order == domain.OrderDesc {
		direction = "DESC"
	}
	return fmt.Sprintf("%s %s, o.id", column, direction)
}

// ListOperators returns one page of operators together with the car each
// one currently holds, and the total number of matches.
func (r *Repository) ListOperators(ctx context.Context, f *domain.OperatorFilters) ([]domain.OperatorWithCurrentCar, int, error) {
	where := operatorConditions(f)

	countQuery, countArgs, err := r.builder.Select("COUNT(*)").From("car_operators o").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}

	columns := append(append([]string{}, operatorColumns...), "c.id", "c.license_plate", "c.brand", "c.model", "a.start_date")
	query, args, err := r.builder.Select(columns...).
		From("car_operators o").
		LeftJoin("car_operator_assignments a ON a.operator_id = o.id AND a.end_date IS NULL").
		LeftJoin("cars c ON c.id = a.car_id").
		Where(where).
		OrderBy(operatorOrder(f)).
		Limit(uint64(f.Limit)).
		Offset(uint64((f.Page - 1) * f.Limit)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.dbpool.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	operators := make([]domain.OperatorWithCurrentCar, 0)
	for rows.Next() {
		var (
			item                     domain.OperatorWithCurrentCar
			carID, plate, brand, mdl sql.NullString
			since                    sql.NullTime
		)
		dst := append(operatorDst(&item.Operator), &carID, &plate, &brand, &mdl, &since)
		if err := rows.Scan(dst...); err != nil {
			return nil, 0, err
		}
		if carID.Valid {
			item.CurrentCar = &domain.CurrentCar{
				ID:           carID.String,
				LicensePlate: plate.String,
				Brand:        brand.String,
				Model:        mdl.String,
				Since:        since.Time,
			}
		}
		operators = append(operators, item)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return operators, total, nil
}

// ListAvailableOperators returns active operators holding no car.
func (r *Repository) ListAvailableOperators(ctx context.Context) ([]domain.Operator, error) {
	query, args, err := r.builder.Select(operatorColumns...).
		From("car_operators o").
		Where(sq.Eq{"o.is_active": true}).
		Where("NOT EXISTS (SELECT 1 FROM car_operator_assignments a WHERE a.operator_id = o.id AND a.end_date IS NULL)").
		OrderBy("o.last_name", "o.first_name").
		ToSql()
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	operators := make([]domain.Operator, 0)
	for rows.Next() {
		var operator domain.Operator
		if err := rows.Scan(operatorDst(&operator)...); err != nil {
			return nil, err
		}
		operators = append(operators, operator)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return operators, nil
}
