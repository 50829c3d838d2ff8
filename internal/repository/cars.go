package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/google/uuid"
)

var carColumns = []string{"id", "license_plate", "brand", "model", "status", "created_at", "updated_at", "created_by"}

func carDst(c *domain.Car) []any {
	return []any{&c.ID, &c.LicensePlate, &c.Brand, &c.Model, &c.Status, &c.CreatedAt, &c.UpdatedAt, &c.CreatedBy}
}

func (r *Repository) CreateCar(ctx context.Context, car *domain.Car) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return insertCar(ctx, r.dbpool, car)
}

func insertCar(ctx context.Context, q queryRower, car *domain.Car) error {
	query := `
		INSERT INTO cars (id, license_plate, brand, model, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	if car.ID == "" {
		car.ID = uuid.NewString()
	}

	args := []any{car.ID, car.LicensePlate, car.Brand, car.Model, car.Status, car.CreatedBy}
	return q.QueryRowContext(ctx, query, args...).Scan(&car.CreatedAt, &car.UpdatedAt)
}

func (r *Repository) GetCarByID(ctx context.Context, id string) (*domain.Car, error) {
	query, args, err := r.builder.Select(carColumns...).From("cars").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	car := &domain.Car{}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(carDst(car)...); err != nil {
		return nil, err
	}

	return car, nil
}

func (r *Repository) UpdateCar(ctx context.Context, car *domain.Car) error {
	query := `
		UPDATE cars
		SET
			license_plate = $1,
			brand = $2,
			model = $3,
			status = $4,
			updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{car.LicensePlate, car.Brand, car.Model, car.Status, car.ID}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&car.UpdatedAt)
}

// RetireCar is the soft delete of a car: the row stays for the history.
func (r *Repository) RetireCar(ctx context.Context, id string) error {
	query := `UPDATE cars SET status = 'retired', updated_at = NOW() WHERE id = $1`

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

func (r *Repository) ListCars(ctx context.Context, f *domain.CarFilters) ([]domain.Car, int, error) {
	where := sq.And{}
	if f.Status != nil {
		where = append(where, sq.Eq{"status": *f.Status})
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		where = append(where, sq.Or{
			sq.ILike{"license_plate": pattern},
			sq.ILike{"brand": pattern},
			sq.ILike{"model": pattern},
		})
	}

	countQuery, countArgs, err := r.builder.Select("COUNT(*)").From("cars").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}

	query, args, err := r.builder.Select(carColumns...).
		From("cars").
		Where(where).
		OrderBy("created_at DESC", "id").
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

	cars := make([]domain.Car, 0)
	for rows.Next() {
		var car domain.Car
		if err := rows.Scan(carDst(&car)...); err != nil {
			return nil, 0, err
		}
		cars = append(cars, car)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return cars, total, nil
}
