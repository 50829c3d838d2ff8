package repository

import (
	"context"

	"github.com/goldenkiwi/autoparc/backend/internal/domain"
)

// CreateFleetEntry inserts an operator, a car and, when assignment is not
// nil, the assignment linking them. Either all rows are written or none.
// The assignment's car and operator ids are filled in from the new rows.
func (r *Repository) CreateFleetEntry(ctx context.Context, operator *domain.Operator, car *domain.Car, assignment *domain.Assignment) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertOperator(ctx, tx, operator); err != nil {
		return err
	}
	if err := insertCar(ctx, tx, car); err != nil {
		return err
	}
	if assignment != nil {
		assignment.OperatorID = operator.ID
		assignment.CarID = car.ID
		if err := insertAssignment(ctx, tx, assignment); err != nil {
			return err
		}
	}

	return tx.Commit()
}
